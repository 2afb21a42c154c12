package zenn

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/ktsujino/zenn-assist/errors"
)

// GenerateRequest describes the article the Zenn CLI should create.
type GenerateRequest struct {
	Title   string `json:"title"`
	Emoji   string `json:"emoji"`
	Type    string `json:"type"` // tech | idea
	Content string `json:"content"`
	Slug    string `json:"slug,omitempty"`
}

// GeneratedResponse reports the slug of a newly created article.
type GeneratedResponse struct {
	Status string `json:"status"`
	Slug   string `json:"slug"`
}

// GenerateService creates articles through the Zenn CLI and rewrites their
// bodies while preserving the CLI-generated frontmatter.
type GenerateService struct {
	files   *FileService
	rootDir string
	runner  CommandRunner
}

// NewGenerateService wires the generate workflow.
func NewGenerateService(files *FileService, rootDir string, runner CommandRunner) *GenerateService {
	return &GenerateService{files: files, rootDir: rootDir, runner: runner}
}

// GenerateArticle runs `npx zenn new:article`, finds the file the CLI
// created, and replaces its body with content. Returns the article slug.
func (g *GenerateService) GenerateArticle(ctx context.Context, req GenerateRequest) (string, error) {
	before, err := g.files.Glob("*.md")
	if err != nil {
		return "", err
	}

	args := []string{"zenn", "new:article", "--title", req.Title, "--type", articleType(req.Type), "--emoji", req.Emoji, "--published", "false"}
	if req.Slug != "" {
		args = append(args, "--slug", req.Slug)
	}
	if _, _, err := g.runner.Run(ctx, g.rootDir, "npx", args...); err != nil {
		return "", errors.Wrapf(err, "zenn new:article failed")
	}

	after, err := g.files.Glob("*.md")
	if err != nil {
		return "", err
	}

	articlePath, err := newFile(before, after)
	if err != nil {
		return "", err
	}

	original, err := os.ReadFile(articlePath)
	if err != nil {
		return "", errors.Wrapf(err, "could not read created article")
	}

	rewritten, err := replaceBody(string(original), req.Content)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(articlePath, []byte(rewritten), 0644); err != nil {
		return "", errors.Wrapf(err, "could not write article body")
	}

	return g.files.Slug(articlePath), nil
}

// AddTopics appends a topic to the article's frontmatter topics list.
func (g *GenerateService) AddTopics(articleSlug, topic string) (string, error) {
	articlePath, err := g.files.ArticlePath(articleSlug)
	if err != nil {
		return "", err
	}

	content, err := os.ReadFile(articlePath)
	if err != nil {
		return "", errors.Wrapf(err, "could not read article")
	}

	rewritten, err := addTopic(string(content), topic)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(articlePath, []byte(rewritten), 0644); err != nil {
		return "", errors.Wrapf(err, "could not write article")
	}

	return g.files.Slug(articlePath), nil
}

func articleType(t string) string {
	if t == "" {
		return "tech"
	}
	return strings.ToLower(t)
}

// newFile returns the single path present in after but not before.
func newFile(before, after []string) (string, error) {
	seen := make(map[string]bool, len(before))
	for _, p := range before {
		seen[p] = true
	}
	for _, p := range after {
		if !seen[p] {
			return p, nil
		}
	}
	return "", errors.New("failed to detect created Zenn article markdown file")
}

// replaceBody keeps the CLI-generated frontmatter and swaps in a new body.
func replaceBody(original, body string) (string, error) {
	frontMatter, _, err := splitFrontmatter(original)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("---%s---\n\n%s\n", frontMatter, strings.TrimSpace(body)), nil
}

var topicsRe = regexp.MustCompile(`topics:\s*\[(.*?)\]`)

// addTopic inserts topic into the frontmatter topics list if not present.
func addTopic(content, topic string) (string, error) {
	frontMatter, body, err := splitFrontmatter(content)
	if err != nil {
		return "", err
	}

	match := topicsRe.FindStringSubmatch(frontMatter)
	if match == nil {
		return "", errors.New("topics line not found in frontmatter")
	}

	var topics []string
	if listStr := strings.TrimSpace(match[1]); listStr != "" {
		for _, t := range strings.Split(listStr, ",") {
			topics = append(topics, strings.Trim(strings.TrimSpace(t), `"'`))
		}
	}

	present := false
	for _, t := range topics {
		if t == topic {
			present = true
			break
		}
	}
	if !present {
		topics = append(topics, topic)
	}

	quoted := make([]string, len(topics))
	for i, t := range topics {
		quoted[i] = fmt.Sprintf("%q", t)
	}
	newFrontMatter := topicsRe.ReplaceAllString(frontMatter, fmt.Sprintf("topics: [%s]", strings.Join(quoted, ",")))

	return fmt.Sprintf("---%s---%s", newFrontMatter, body), nil
}

// splitFrontmatter separates a "--- ... ---" frontmatter block from the body.
func splitFrontmatter(content string) (frontMatter, body string, err error) {
	if !strings.HasPrefix(content, "---") {
		return "", "", errors.New("frontmatter not found")
	}
	parts := strings.SplitN(content, "---", 3)
	if len(parts) < 3 {
		return "", "", errors.New("frontmatter not found")
	}
	return parts[1], parts[2], nil
}
