package app

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"nameres/internal/core/config"
	"nameres/internal/core/errors"
	"nameres/internal/engine/ast"
	"nameres/internal/engine/diag"
	"nameres/internal/engine/parser"
	"nameres/internal/shared/util"
)

// loaded is a parsed program plus what the parser reported for it.
type loaded struct {
	prog  *ast.Program
	files []string
	diags []diag.Diagnostic
}

// loadProgram parses local and, transitively, every crate it depends on.
// Extern crates are named by the alias they are imported under. The prelude
// crate is added when configured and not already present.
func (a *App) loadProgram(ctx context.Context, cfg *config.Config, paths config.ResolvedPaths, local config.Crate) (*loaded, error) {
	res, err := a.parseCrate(ctx, paths, local.Name, a.crateRoot(paths, local))
	if err != nil {
		return nil, err
	}
	out := &loaded{
		prog:  &ast.Program{Local: res.Crate},
		files: res.Files,
		diags: res.Diagnostics,
	}

	type pending struct {
		alias string
		crate config.Crate
	}
	seen := map[string]bool{local.Name: true}
	var queue []pending
	push := func(from config.Crate) error {
		for _, entry := range from.Externs {
			alias, name := config.SplitExtern(entry)
			if seen[alias] {
				continue
			}
			dep, ok := cfg.Crate(name)
			if !ok {
				err := errors.Newf(errors.CodeNotFound, "crate %s depends on unknown crate %s", from.Name, name)
				return errors.AddContext(err, errors.CtxCrate, from.Name)
			}
			seen[alias] = true
			queue = append(queue, pending{alias: alias, crate: dep})
		}
		return nil
	}
	if err := push(local); err != nil {
		return nil, err
	}
	if prelude := cfg.Resolve.PreludeCrate; !cfg.Resolve.NoPrelude && prelude != "" && !seen[prelude] {
		if dep, ok := cfg.Crate(prelude); ok {
			seen[prelude] = true
			queue = append(queue, pending{alias: prelude, crate: dep})
		}
	}

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		res, err := a.parseCrate(ctx, paths, next.alias, a.crateRoot(paths, next.crate))
		if err != nil {
			return nil, errors.AddContext(err, "extern", next.alias)
		}
		out.prog.Externs = append(out.prog.Externs, res.Crate)
		out.files = append(out.files, res.Files...)
		out.diags = append(out.diags, res.Diagnostics...)
		if err := push(next.crate); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (a *App) crateRoot(paths config.ResolvedPaths, c config.Crate) string {
	if root, ok := paths.CrateRoots[c.Name]; ok && root != "" {
		return root
	}
	return config.ResolveRelative(paths.ProjectRoot, filepath.FromSlash(c.Root))
}

// parseCrate reads a crate from disk. Files inside the project root are
// named relative to it so diagnostics and exclude globs see stable paths.
func (a *App) parseCrate(ctx context.Context, paths config.ResolvedPaths, name, root string) (*parser.Result, error) {
	fsysRoot, rel := filepath.Dir(root), filepath.Base(root)
	if paths.ProjectRoot != "" {
		if r, err := filepath.Rel(paths.ProjectRoot, root); err == nil && !strings.HasPrefix(r, "..") {
			fsysRoot, rel = paths.ProjectRoot, r
		}
	}
	var fsys fs.FS = os.DirFS(fsysRoot)
	res, err := a.Parser.ParseCrate(ctx, fsys, name, filepath.ToSlash(rel))
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, util.DisplayPath(paths.ProjectRoot, root))
	}
	return res, nil
}

// CrateFromPath describes an ad-hoc crate for a root file given on the
// command line. lib.rs, main.rs and mod.rs take the name of their directory.
func CrateFromPath(path string) config.Crate {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "lib" || stem == "main" || stem == "mod" {
		dir := filepath.Base(filepath.Dir(path))
		if dir == "src" {
			dir = filepath.Base(filepath.Dir(filepath.Dir(path)))
		}
		if dir != "." && dir != string(filepath.Separator) && dir != "" {
			stem = dir
		}
	}
	return config.Crate{Name: identName(stem), Root: path}
}

func identName(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "main"
	}
	return b.String()
}
