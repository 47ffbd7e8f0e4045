package pathutil

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// maxWalkFileSize leaves files larger than this out of WalkProject's
// result list, matching the 10MB ceiling in the teacher's filesearch.Search.
const maxWalkFileSize = 10 * 1024 * 1024

// GitignoreMatcher matches relative paths against a project's .gitignore,
// ported from the teacher's filesearch.GitignoreMatcher with the same
// pattern-to-regex compilation strategy.
type GitignoreMatcher struct {
	patterns []*gitignorePattern
}

type gitignorePattern struct {
	regex    *regexp.Regexp
	negation bool
	dirOnly  bool
}

// LoadGitignore reads and compiles path's .gitignore, if present.
func LoadGitignore(path string) (*GitignoreMatcher, error) {
	m := &GitignoreMatcher{}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if p := compileGitignoreLine(line); p != nil {
			m.patterns = append(m.patterns, p)
		}
	}
	return m, scanner.Err()
}

func compileGitignoreLine(line string) *gitignorePattern {
	negation := strings.HasPrefix(line, "!")
	if negation {
		line = line[1:]
	}
	dirOnly := strings.HasSuffix(line, "/")
	line = strings.TrimSuffix(line, "/")
	if line == "" {
		return nil
	}
	anchored := strings.Contains(line, "/")
	line = strings.TrimPrefix(line, "/")

	var b strings.Builder
	b.WriteByte('^')
	if !anchored {
		b.WriteString("(.*/)?")
	}
	for _, r := range line {
		switch r {
		case '*':
			b.WriteString("[^/]*")
		case '?':
			b.WriteString("[^/]")
		case '.':
			b.WriteString(`\.`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("(/.*)?$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil
	}
	return &gitignorePattern{regex: re, negation: negation, dirOnly: dirOnly}
}

// Matches reports whether relPath (slash-separated, project-root-relative)
// is ignored, applying patterns in file order so a later negation pattern
// can override an earlier match, exactly as git itself resolves precedence.
func (m *GitignoreMatcher) Matches(relPath string, isDir bool) bool {
	if m == nil || len(m.patterns) == 0 {
		return false
	}
	relPath = filepath.ToSlash(relPath)
	matched := false
	for _, p := range m.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		if p.regex.MatchString(relPath) {
			matched = !p.negation
		}
	}
	return matched
}

// WalkProject walks root, skipping .git and gitignored entries, and returns
// every regular file's root-relative, slash-separated path. Used to build
// the candidate list the file-picker overlay controller fuzzy-filters.
func WalkProject(root string) ([]string, error) {
	gi, err := LoadGitignore(filepath.Join(root, ".gitignore"))
	if err != nil {
		gi = &GitignoreMatcher{}
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return nil
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		if gi.Matches(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil && info.Size() > maxWalkFileSize {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
