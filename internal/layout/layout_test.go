package layout

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLayoutPaths(t *testing.T) {
	root := t.TempDir()
	l, err := New(root)
	if err != nil {
		t.Fatalf("new layout: %v", err)
	}

	want := map[string]string{
		"vendor":   filepath.Join(root, "vendor"),
		"source":   filepath.Join(root, "vendor", "mmg"),
		"build":    filepath.Join(root, "vendor", "mmg", "build"),
		"artifact": filepath.Join(root, "vendor", "mmg", "build", "bin", "mmgs_O3"),
		"receipt":  filepath.Join(root, "vendor", "mmg", "build", "mmgctl-receipt.toml"),
	}
	got := map[string]string{
		"vendor":   l.VendorDir(),
		"source":   l.SourceDir(),
		"build":    l.BuildDir(),
		"artifact": l.Artifact(),
		"receipt":  l.Receipt(),
	}
	for key, w := range want {
		if got[key] != w {
			t.Fatalf("%s = %q, want %q", key, got[key], w)
		}
	}
}

func TestNewRejectsEmptyRoot(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatalf("expected error for empty root")
	}
}

func TestFindRootWalksUpToMarker(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "pyproject.toml"), []byte("[project]\n"), 0o644); err != nil {
		t.Fatalf("write marker: %v", err)
	}
	nested := filepath.Join(root, "bpy_geometries", "tests")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir nested: %v", err)
	}

	got, err := FindRoot(nested)
	if err != nil {
		t.Fatalf("find root: %v", err)
	}
	if got != root {
		t.Fatalf("FindRoot = %q, want %q", got, root)
	}
}

func TestFindRootSkipsVendoredCheckout(t *testing.T) {
	root := t.TempDir()
	l, err := New(root)
	if err != nil {
		t.Fatalf("new layout: %v", err)
	}
	for _, dir := range []string{
		filepath.Join(root, ".git"),
		filepath.Join(l.SourceDir(), ".git"),
		filepath.Join(l.BuildDir(), "bin"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	for _, start := range []string{l.SourceDir(), l.BuildDir(), filepath.Join(l.BuildDir(), "bin")} {
		got, err := FindRoot(start)
		if err != nil {
			t.Fatalf("find root from %s: %v", start, err)
		}
		if got != root {
			t.Fatalf("FindRoot(%s) = %q, want %q", start, got, root)
		}
		found, err := New(got)
		if err != nil {
			t.Fatalf("new layout: %v", err)
		}
		if found.Artifact() != l.Artifact() {
			t.Fatalf("artifact from %s = %q, want %q", start, found.Artifact(), l.Artifact())
		}
	}
}
