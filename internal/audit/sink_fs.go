package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// FileSink persists audit artifacts and the run summary to disk.
type FileSink struct {
	root   string
	logger *zap.Logger
}

// NewFileSink returns a sink rooted at dir, creating it if absent.
func NewFileSink(root string, logger *zap.Logger) (*FileSink, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create reports dir %s: %w", root, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSink{root: root, logger: logger}, nil
}

// SaveArtifacts writes the engine's structured and rendered documents
// verbatim as <name>.json and <name>.html under the reports directory.
// The directory creation is idempotent, so repeated calls are safe.
func (s *FileSink) SaveArtifacts(ctx context.Context, name string, structured, rendered []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}
	if err := os.MkdirAll(s.root, 0o750); err != nil {
		return fmt.Errorf("create reports dir %s: %w", s.root, err)
	}

	jsonPath := filepath.Join(s.root, name+".json")
	if err := os.WriteFile(jsonPath, structured, 0o600); err != nil {
		return fmt.Errorf("write structured report %s: %w", jsonPath, err)
	}
	htmlPath := filepath.Join(s.root, name+".html")
	if err := os.WriteFile(htmlPath, rendered, 0o600); err != nil {
		return fmt.Errorf("write rendered report %s: %w", htmlPath, err)
	}

	s.logger.Debug("report artifacts written",
		zap.String("json", jsonPath),
		zap.String("html", htmlPath),
	)
	return nil
}

// csvField wraps a value in double quotes, doubling embedded quotes per
// RFC 4180. Error messages routinely carry quotes (os/exec wraps the
// missing binary name in them), so Go-style %q escaping would produce rows
// CSV readers reject.
func csvField(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

// WriteSummary serializes one CSV row per result, in input order, and
// overwrites any existing file at path. Returns the path written.
func (s *FileSink) WriteSummary(results []Result, path string) (string, error) {
	var b strings.Builder
	b.WriteString("URL,Performance,Accessibility,BestPractices,SEO,Error\n")
	for _, r := range results {
		fmt.Fprintf(&b, "%s,%s,%s,%s,%s,%s\n",
			csvField(r.URL),
			r.Scores.Performance,
			r.Scores.Accessibility,
			r.Scores.BestPractices,
			r.Scores.SEO,
			csvField(r.Error),
		)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return "", fmt.Errorf("write summary %s: %w", path, err)
	}
	s.logger.Info("summary written", zap.String("path", path), zap.Int("rows", len(results)))
	return path, nil
}
