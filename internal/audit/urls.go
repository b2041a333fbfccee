package audit

import (
	"bufio"
	"errors"
	"net/url"
	"os"
	"strings"

	"go.uber.org/zap"
)

// ErrNoTargets signals that no valid URL could be found anywhere; the run
// terminates early without producing report files.
var ErrNoTargets = errors.New("no valid audit targets")

// ValidTarget reports whether the candidate is an absolute HTTP(S) URL.
func ValidTarget(candidate string) bool {
	if !strings.HasPrefix(candidate, "http://") && !strings.HasPrefix(candidate, "https://") {
		return false
	}
	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	return u.Host != ""
}

// LoadTargets reads a line-delimited URL list from path. Lines are trimmed;
// a line is kept iff it carries an HTTP(S) scheme and parses as a URL.
// Malformed lines are logged and dropped, never fatal. When the file is
// missing or yields no valid URL the defaults are used instead. No
// deduplication happens here: duplicate input URLs produce duplicate jobs.
func LoadTargets(path string, defaults []string, logger *zap.Logger) []string {
	if logger == nil {
		logger = zap.NewNop()
	}

	targets := readTargetFile(path, logger)
	if len(targets) > 0 {
		return targets
	}

	var fallback []string
	for _, candidate := range defaults {
		if !ValidTarget(candidate) {
			logger.Warn("Skipping invalid default URL", zap.String("url", candidate))
			continue
		}
		fallback = append(fallback, candidate)
	}
	if len(fallback) > 0 {
		logger.Info("Using default URL set", zap.Int("count", len(fallback)))
	}
	return fallback
}

func readTargetFile(path string, logger *zap.Logger) []string {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		logger.Warn("URL file not readable; falling back to defaults",
			zap.String("path", path), zap.Error(err))
		return nil
	}
	defer f.Close() //nolint:errcheck // read-only handle

	var targets []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !ValidTarget(line) {
			logger.Warn("Skipping invalid URL line", zap.String("line", line))
			continue
		}
		targets = append(targets, line)
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("Error while reading URL file", zap.String("path", path), zap.Error(err))
	}
	return targets
}
