package zenn

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/ktsujino/zenn-assist/errors"
)

// PublishRequest identifies the article to publish.
type PublishRequest struct {
	Slug string `json:"slug"`
}

// PublishResponse reports the outcome of a publish.
type PublishResponse struct {
	Status string `json:"status"` // "published!" | "failed"
	Slug   string `json:"slug"`
}

// PublishError is a typed publish-pipeline failure carrying the logical
// endpoint for diagnostics.
type PublishError struct {
	Message    string
	Endpoint   string
	StatusCode int
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish error at %s: %s", e.Endpoint, e.Message)
}

var (
	publishedRe = regexp.MustCompile(`published:\s*false`)
	titleRe     = regexp.MustCompile(`title:\s*"(.+?)"`)
)

// PublishService flips an article to published and pushes it through git,
// which triggers Zenn's GitHub-linked deployment.
type PublishService struct {
	files   *FileService
	rootDir string
	runner  CommandRunner
}

// NewPublishService wires the publish workflow.
func NewPublishService(files *FileService, rootDir string, runner CommandRunner) *PublishService {
	return &PublishService{files: files, rootDir: rootDir, runner: runner}
}

// PublishArticle rewrites the article's published flag, commits and pushes.
func (p *PublishService) PublishArticle(ctx context.Context, slug string) (*PublishResponse, error) {
	articlePath, err := p.files.ArticlePath(slug)
	if err != nil {
		return nil, &PublishError{Message: err.Error(), Endpoint: "/publish", StatusCode: 404}
	}

	content, err := os.ReadFile(articlePath)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read article %s", slug)
	}

	rewritten := publishedRe.ReplaceAllString(string(content), "published: true")
	title := articleTitle(string(content))

	if err := os.WriteFile(articlePath, []byte(rewritten), 0644); err != nil {
		return nil, errors.Wrapf(err, "could not write article %s", slug)
	}

	articleSlug := p.files.Slug(articlePath)

	if err := p.gitPush(ctx, title); err != nil {
		return &PublishResponse{Status: "failed", Slug: articleSlug}, err
	}

	slog.Info("article published", "slug", articleSlug, "title", title)
	return &PublishResponse{Status: "published!", Slug: articleSlug}, nil
}

func (p *PublishService) gitPush(ctx context.Context, title string) error {
	steps := [][]string{
		{"add", "."},
		{"commit", "-m", fmt.Sprintf("publish %s", title)},
		{"push"},
	}
	for _, args := range steps {
		if _, stderr, err := p.runner.Run(ctx, p.rootDir, "git", args...); err != nil {
			if strings.Contains(stderr, "could not read Username") {
				return &PublishError{
					Message:    "GitHub credential missing. Configure PAT or SSH key.",
					Endpoint:   "/publish",
					StatusCode: 500,
				}
			}
			return &PublishError{
				Message:  fmt.Sprintf("git %s failed: %v", args[0], err),
				Endpoint: "/publish",
			}
		}
	}
	return nil
}

func articleTitle(content string) string {
	if match := titleRe.FindStringSubmatch(content); match != nil {
		return match[1]
	}
	return "Untitled"
}
