package resolve

import "testing"

func TestBestMatch(t *testing.T) {
	tests := []struct {
		name   string
		names  []string
		lookup string
		want   string
		ok     bool
	}{
		{"case only", []string{"Vec", "vec"}, "VEC", "Vec", true},
		{"one edit", []string{"counter", "count_all"}, "countr", "counter", true},
		{"too far", []string{"alpha"}, "omega", "", false},
		{"exact name skipped", []string{"same"}, "same", "", false},
		{"short lookup allows one edit", []string{"ab"}, "ac", "ab", true},
		{"ties break by name", []string{"bar", "baz"}, "bax", "bar", true},
		{"empty", nil, "x", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := bestMatch(tt.names, tt.lookup)
			if got != tt.want || ok != tt.ok {
				t.Fatalf("bestMatch(%v, %q) = %q, %v; want %q, %v", tt.names, tt.lookup, got, ok, tt.want, tt.ok)
			}
		})
	}
}
