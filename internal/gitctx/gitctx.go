// Package gitctx answers the one git question the manifest needs: when was
// a file last committed.
package gitctx

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNotTracked is returned when no commit touches the path.
var ErrNotTracked = errors.New("no commit touches path")

// CommitDater reports the last commit time of a file.
type CommitDater interface {
	LastCommit(path string) (time.Time, error)
}

// Repo reads commit history through go-git.
type Repo struct {
	root string
	repo *git.Repository
}

// Open finds the repository containing path, walking up to the .git directory.
func Open(path string) (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, err
	}
	return &Repo{root: wt.Filesystem.Root(), repo: repo}, nil
}

// Root is the worktree root.
func (r *Repo) Root() string { return r.root }

// LastCommit returns the committer time of the newest commit touching path.
func (r *Repo) LastCommit(path string) (time.Time, error) {
	rel, err := r.relative(path)
	if err != nil {
		return time.Time{}, err
	}
	head, err := r.repo.Head()
	if err != nil {
		return time.Time{}, fmt.Errorf("resolve HEAD: %w", err)
	}
	iter, err := r.repo.Log(&git.LogOptions{From: head.Hash(), FileName: &rel, Order: git.LogOrderCommitterTime})
	if err != nil {
		return time.Time{}, fmt.Errorf("git log %s: %w", rel, err)
	}
	defer iter.Close()

	c, err := iter.Next()
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", rel, ErrNotTracked)
	}
	return commitTime(c), nil
}

func (r *Repo) relative(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	root := r.root
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside repository %s", path, r.root)
	}
	return filepath.ToSlash(rel), nil
}

func commitTime(c *object.Commit) time.Time {
	return c.Committer.When.UTC()
}

// CLI shells out to git; used when go-git cannot open the repository
// (e.g. worktrees with unsupported extensions).
type CLI struct {
	Dir string
}

// LastCommit runs `git log -1 --format=%ct -- path`.
func (c CLI) LastCommit(path string) (time.Time, error) {
	out := runGit(c.Dir, "log", "-1", "--format=%ct", "--", path)
	if out == "" {
		return time.Time{}, fmt.Errorf("%s: %w", path, ErrNotTracked)
	}
	sec, err := strconv.ParseInt(out, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("git log %s: unexpected output %q", path, out)
	}
	return time.Unix(sec, 0).UTC(), nil
}

// Detect returns a CommitDater for the repository containing dir, or nil
// when dir is not inside a git repository.
func Detect(dir string) CommitDater {
	if r, err := Open(dir); err == nil {
		return r
	}
	if _, err := exec.LookPath("git"); err != nil {
		return nil
	}
	if !isRepoCLI(dir) {
		return nil
	}
	return CLI{Dir: dir}
}

func isRepoCLI(target string) bool {
	return runGit(target, "rev-parse", "--is-inside-work-tree") == "true"
}

func runGit(dir string, args ...string) string {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, _ := cmd.Output()
	return strings.TrimSpace(string(out))
}
