package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	"github.com/beaconlabs/beacon/internal/audit"
)

// structuredReport is the schema of the per-job JSON artifact.
type structuredReport struct {
	URL        string         `json:"url"`
	FinalURL   string         `json:"final_url"`
	StatusCode int            `json:"status_code"`
	FetchedAt  time.Time      `json:"fetched_at"`
	Timing     Timing         `json:"timing"`
	Scores     map[string]any `json:"scores"`
	Checks     []Check        `json:"checks"`
}

func scoreValue(s audit.Score) any {
	if !s.OK {
		return nil
	}
	return s.Value
}

func buildStructuredDoc(page Page, scores audit.Scores, checks []Check) ([]byte, error) {
	report := structuredReport{
		URL:        page.URL,
		FinalURL:   page.FinalURL,
		StatusCode: page.StatusCode,
		FetchedAt:  page.FetchedAt,
		Timing:     page.Timing,
		Scores: map[string]any{
			string(audit.CategoryPerformance):   scoreValue(scores.Performance),
			string(audit.CategoryAccessibility): scoreValue(scores.Accessibility),
			string(audit.CategoryBestPractices): scoreValue(scores.BestPractices),
			string(audit.CategorySEO):           scoreValue(scores.SEO),
		},
		Checks: checks,
	}
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return payload, nil
}

var renderedTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Audit report for {{.Page.URL}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
table { border-collapse: collapse; }
td, th { border: 1px solid #ccc; padding: 0.4rem 0.8rem; text-align: left; }
.pass { color: #1a7f37; }
.fail { color: #b42318; }
</style>
</head>
<body>
<h1>Audit report</h1>
<p><strong>{{.Page.URL}}</strong> audited at {{.Page.FetchedAt.Format "2006-01-02 15:04:05 MST"}}</p>
<table>
<tr><th>Performance</th><th>Accessibility</th><th>Best practices</th><th>SEO</th></tr>
<tr><td>{{.Scores.Performance}}</td><td>{{.Scores.Accessibility}}</td><td>{{.Scores.BestPractices}}</td><td>{{.Scores.SEO}}</td></tr>
</table>
<h2>Checks</h2>
<table>
<tr><th>Category</th><th>Check</th><th>Result</th><th>Detail</th></tr>
{{range .Checks}}<tr>
<td>{{.Category}}</td><td>{{.Title}}</td>
<td class="{{if .Passed}}pass{{else}}fail{{end}}">{{if .Passed}}pass{{else}}fail{{end}}</td>
<td>{{.Detail}}</td>
</tr>
{{end}}</table>
</body>
</html>
`))

func buildRenderedDoc(page Page, scores audit.Scores, checks []Check) ([]byte, error) {
	var buf bytes.Buffer
	data := struct {
		Page   Page
		Scores audit.Scores
		Checks []Check
	}{page, scores, checks}
	if err := renderedTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}
