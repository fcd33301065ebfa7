package provision

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ensureSource clones the upstream into the vendor dir, or fast-forwards an
// existing checkout in place.
func (r *run) ensureSource() error {
	dest := r.p.layout.SourceDir()
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrSourceFetch, err)
	}

	if _, err := os.Stat(dest); errors.Is(err, os.ErrNotExist) {
		if err := r.clone(dest); err != nil {
			return err
		}
	} else if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceFetch, err)
	} else if err := r.update(dest); err != nil {
		return err
	}

	r.readCommit(dest)
	return nil
}

func (r *run) clone(dest string) error {
	args := []string{"clone"}
	if r.p.branch != "" {
		args = append(args, "--branch", r.p.branch, "--single-branch")
	}
	args = append(args, r.p.repoURL, dest)
	if err := r.git(args...); err != nil {
		return err
	}
	if r.p.ref != "" {
		return r.checkoutRef(dest)
	}
	return nil
}

func (r *run) update(dest string) error {
	if _, err := os.Stat(filepath.Join(dest, ".git")); err != nil {
		return fmt.Errorf("%w: %w: %s exists but is not a git repository", ErrSourceFetch, ErrInvalidSource, dest)
	}

	if r.p.branch != "" {
		if err := r.git("-C", dest, "checkout", r.p.branch); err != nil {
			return err
		}
		if err := r.git("-C", dest, "pull", "--ff-only", "origin", r.p.branch); err != nil {
			return err
		}
	}
	if r.p.ref != "" {
		return r.checkoutRef(dest)
	}
	if r.p.branch == "" {
		if err := r.attachDefaultBranch(dest); err != nil {
			return err
		}
		return r.git("-C", dest, "pull", "--ff-only")
	}
	return nil
}

// attachDefaultBranch moves a detached checkout, left behind by an earlier
// ref pin, back onto origin's default branch so a plain pull can fast-forward.
func (r *run) attachDefaultBranch(dest string) error {
	if _, err := r.exec("git", "-C", dest, "symbolic-ref", "-q", "HEAD"); err == nil {
		return nil
	}
	out, err := r.exec("git", "-C", dest, "symbolic-ref", "--short", "refs/remotes/origin/HEAD")
	if err != nil {
		return fmt.Errorf("%w: detached HEAD and no origin default branch: %w", ErrSourceFetch, err)
	}
	branch := strings.TrimPrefix(strings.TrimSpace(string(out)), "origin/")
	if branch == "" {
		return fmt.Errorf("%w: detached HEAD and empty origin default branch", ErrSourceFetch)
	}
	r.log.Info().Str("branch", branch).Msg("reattaching detached checkout")
	return r.git("-C", dest, "checkout", branch)
}

func (r *run) checkoutRef(dest string) error {
	if err := r.git("-C", dest, "fetch", "origin", r.p.ref); err != nil {
		return err
	}
	return r.git("-C", dest, "checkout", "FETCH_HEAD")
}

func (r *run) git(args ...string) error {
	if _, err := r.exec("git", args...); err != nil {
		return fmt.Errorf("%w: %w", ErrSourceFetch, err)
	}
	return nil
}

// readCommit records HEAD for the receipt. Failure here is not fatal.
func (r *run) readCommit(dest string) {
	out, err := r.exec("git", "-C", dest, "rev-parse", "HEAD")
	if err != nil {
		r.log.Warn().Err(err).Msg("source commit unavailable")
		return
	}
	r.commit = strings.TrimSpace(string(out))
}
