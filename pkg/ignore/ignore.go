// Package ignore provides gitignore-style filtering for the data tree scanner.
package ignore

import (
	"bufio"
	"strings"

	"github.com/go-git/go-billy/v5"
	gitignore "github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// FileName is the repo-level override file read next to .gitignore.
const FileName = ".aerorepoignore"

// defaultPatterns are always skipped.
var defaultPatterns = []string{".git/", ".DS_Store", "*~", "*.swp", "*.orig"}

// Matcher provides gitignore-based file filtering
type Matcher struct {
	matcher gitignore.Matcher
}

// NewMatcher layers ignore patterns for the tree rooted at fs:
// 1. built-in defaults
// 2. .gitignore files (and .git/info/exclude) found by go-git
// 3. .aerorepoignore at the root
func NewMatcher(fs billy.Filesystem) (*Matcher, error) {
	var all []gitignore.Pattern
	for _, p := range defaultPatterns {
		all = append(all, gitignore.ParsePattern(p, nil))
	}

	if gitPatterns, err := gitignore.ReadPatterns(fs, nil); err == nil {
		all = append(all, gitPatterns...)
	}

	if own, err := readIgnoreFile(fs, FileName); err == nil {
		for _, p := range own {
			all = append(all, gitignore.ParsePattern(p, nil))
		}
	}

	return &Matcher{matcher: gitignore.NewMatcher(all)}, nil
}

// readIgnoreFile reads patterns from a text file, skipping blanks and comments.
func readIgnoreFile(fs billy.Filesystem, name string) ([]string, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var patterns []string
	scan := bufio.NewScanner(f)
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, scan.Err()
}

// IsIgnored checks a slash-separated path relative to the matcher root.
func (m *Matcher) IsIgnored(path string, isDir bool) bool {
	if m == nil {
		return false
	}
	parts := splitPath(path)
	if len(parts) == 0 {
		return false
	}
	return m.matcher.Match(parts, isDir)
}

// splitPath converts a slash-separated path into components for go-git matching
func splitPath(path string) []string {
	if path == "" || path == "." {
		return []string{}
	}
	path = strings.TrimPrefix(path, "/")
	parts := strings.Split(path, "/")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" && part != "." {
			result = append(result, part)
		}
	}
	return result
}
