package audit

import (
	"net/url"
	"strings"
	"time"
)

// ReportName derives the filesystem-safe base name for one audit run's
// report files: the URL host with dots replaced by underscores, plus a
// sortable timestamp with colons and dots replaced by dashes.
//
// Pure function of (rawURL, now). Two jobs for the same host launched within
// the same nanosecond would collide; accepted as a known edge case.
func ReportName(rawURL string, now time.Time) string {
	host := "unknown-host"
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}
	host = strings.ReplaceAll(host, ".", "_")

	stamp := now.UTC().Format(time.RFC3339Nano)
	stamp = strings.ReplaceAll(stamp, ":", "-")
	stamp = strings.ReplaceAll(stamp, ".", "-")

	return host + "_" + stamp
}
