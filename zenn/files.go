// Package zenn wraps the Zenn CLI article workflow: creating article files,
// editing their frontmatter, writing article bodies with a model, and
// publishing through git.
package zenn

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/ktsujino/zenn-assist/errors"
)

// FileService locates and writes article markdown files under one articles
// directory.
type FileService struct {
	articlesDir string
}

// NewFileService creates a file service rooted at articlesDir.
func NewFileService(articlesDir string) *FileService {
	return &FileService{articlesDir: articlesDir}
}

// SaveMarkdown writes content to <articlesDir>/<slug>.md and returns the path.
func (f *FileService) SaveMarkdown(slug, content string) (string, error) {
	if err := os.MkdirAll(f.articlesDir, 0755); err != nil {
		return "", errors.Wrapf(err, "could not create articles directory")
	}

	path := filepath.Join(f.articlesDir, fmt.Sprintf("%s.md", slug))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", errors.Wrapf(err, "could not write article %s", slug)
	}
	return path, nil
}

// ArticlePath resolves a slug to an article file: the exact name first, then
// any markdown file whose name contains the slug.
func (f *FileService) ArticlePath(slug string) (string, error) {
	exact := filepath.Join(f.articlesDir, fmt.Sprintf("%s.md", slug))
	if _, err := os.Stat(exact); err == nil {
		return exact, nil
	}

	candidates, err := f.Glob(fmt.Sprintf("*%s*.md", slug))
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", errors.New("article not found for slug: %s", slug)
	}
	return candidates[0], nil
}

// Glob lists article files matching pattern, sorted for determinism.
func (f *FileService) Glob(pattern string) ([]string, error) {
	entries, err := os.ReadDir(f.articlesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "could not read articles directory")
	}

	var matches []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ok, err := doublestar.PathMatch(pattern, entry.Name())
		if err != nil {
			return nil, errors.Wrapf(err, "invalid glob pattern '%s'", pattern)
		}
		if ok {
			matches = append(matches, filepath.Join(f.articlesDir, entry.Name()))
		}
	}
	sort.Strings(matches)
	return matches, nil
}

// Slug derives the article slug from a file path.
func (f *FileService) Slug(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
