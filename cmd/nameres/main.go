package main

import (
	"os"

	"nameres/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
