// Package layout owns the vendor directory convention shared by the
// provisioner and the resolver.
package layout

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const (
	VendorDirName = "vendor"
	SourceDirName = "mmg"
	BuildDirName  = "build"
	ArtifactName  = "mmgs_O3"
	ReceiptName   = "mmgctl-receipt.toml"
)

// PathCandidates are the command names searched on PATH, in priority order.
var PathCandidates = []string{"mmgs_O3", "mmgs"}

// Layout is the resolved set of paths under one repository root.
type Layout struct {
	Root string
}

// New returns the layout rooted at root, made absolute.
func New(root string) (Layout, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return Layout{}, errors.New("layout: empty repository root")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return Layout{}, err
	}
	return Layout{Root: filepath.Clean(abs)}, nil
}

func (l Layout) VendorDir() string {
	return filepath.Join(l.Root, VendorDirName)
}

func (l Layout) SourceDir() string {
	return filepath.Join(l.VendorDir(), SourceDirName)
}

func (l Layout) BuildDir() string {
	return filepath.Join(l.SourceDir(), BuildDirName)
}

// Artifact is {root}/vendor/mmg/build/bin/mmgs_O3.
func (l Layout) Artifact() string {
	return filepath.Join(l.BuildDir(), "bin", ArtifactName)
}

func (l Layout) Receipt() string {
	return filepath.Join(l.BuildDir(), ReceiptName)
}

// rootMarkers identify a repository root when walking up from a directory.
var rootMarkers = []string{".git", "pyproject.toml", "mmgctl.toml"}

// FindRoot walks up from start to the first directory holding a root marker.
// Directories at or below a vendor/mmg checkout are never a root, since that
// checkout carries its own .git. It returns start itself when no marker is
// found.
func FindRoot(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	if checkout, ok := enclosingCheckout(abs); ok {
		// the repository root is the parent of vendor/
		return filepath.Dir(filepath.Dir(checkout)), nil
	}
	dir := abs
	for {
		for _, marker := range rootMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		dir = parent
	}
}

// enclosingCheckout reports the nearest ancestor of dir (dir included) named
// vendor/mmg.
func enclosingCheckout(dir string) (string, bool) {
	for {
		if filepath.Base(dir) == SourceDirName && filepath.Base(filepath.Dir(dir)) == VendorDirName {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
