package engine

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/beaconlabs/beacon/internal/audit"
)

// Check is one pass/fail observation contributing to a category score.
type Check struct {
	Category audit.Category `json:"category"`
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Passed   bool           `json:"passed"`
	Detail   string         `json:"detail,omitempty"`
}

// ScoreDocument analyzes the rendered DOM and timing samples and produces
// the four category scores plus the individual checks behind them.
func ScoreDocument(page Page) (audit.Scores, []Check, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return audit.Scores{}, nil, fmt.Errorf("parse document: %w", err)
	}

	var checks []Check
	checks = append(checks, accessibilityChecks(doc)...)
	checks = append(checks, seoChecks(doc)...)
	checks = append(checks, bestPracticeChecks(page, doc)...)

	scores := audit.Scores{
		Performance:   performanceScore(page.Timing),
		Accessibility: categoryScore(checks, audit.CategoryAccessibility),
		BestPractices: categoryScore(checks, audit.CategoryBestPractices),
		SEO:           categoryScore(checks, audit.CategorySEO),
	}
	return scores, checks, nil
}

// categoryScore is the passed/total ratio for one category, or N/A when the
// category produced no checks at all.
func categoryScore(checks []Check, cat audit.Category) audit.Score {
	var total, passed int
	for _, c := range checks {
		if c.Category != cat {
			continue
		}
		total++
		if c.Passed {
			passed++
		}
	}
	if total == 0 {
		return audit.Unavailable()
	}
	return audit.NewScore(float64(passed) / float64(total) * 100)
}

// performanceScore maps load milestones onto 0-100. Each milestone scores
// 100 at or under its fast budget and decays linearly to 0 at its slow
// budget.
func performanceScore(t Timing) audit.Score {
	if t.DOMContentLoaded <= 0 && t.Load <= 0 {
		return audit.Unavailable()
	}
	ttfb := milestoneScore(t.TTFB, 200, 2000)
	dcl := milestoneScore(t.DOMContentLoaded, 1500, 8000)
	load := milestoneScore(t.Load, 2500, 12000)
	return audit.NewScore(0.2*ttfb + 0.4*dcl + 0.4*load)
}

func milestoneScore(ms, fast, slow float64) float64 {
	switch {
	case ms <= fast:
		return 100
	case ms >= slow:
		return 0
	default:
		return 100 * (slow - ms) / (slow - fast)
	}
}

func accessibilityChecks(doc *goquery.Document) []Check {
	var checks []Check
	add := func(id, title string, passed bool, detail string) {
		checks = append(checks, Check{
			Category: audit.CategoryAccessibility,
			ID:       id, Title: title, Passed: passed, Detail: detail,
		})
	}

	lang, _ := doc.Find("html").Attr("lang")
	add("html-lang", "Document has a lang attribute", strings.TrimSpace(lang) != "", "")

	images := doc.Find("img")
	missingAlt := 0
	images.Each(func(_ int, s *goquery.Selection) {
		if alt, ok := s.Attr("alt"); !ok || strings.TrimSpace(alt) == "" {
			if _, decorative := s.Attr("role"); !decorative {
				missingAlt++
			}
		}
	})
	add("image-alt", "Images have alt text",
		images.Length() == 0 || missingAlt == 0,
		fmt.Sprintf("%d of %d images missing alt text", missingAlt, images.Length()))

	unlabeled := 0
	doc.Find("input:not([type=hidden]):not([type=submit]):not([type=button])").
		Each(func(_ int, s *goquery.Selection) {
			if !inputLabeled(doc, s) {
				unlabeled++
			}
		})
	add("form-labels", "Form inputs have labels", unlabeled == 0,
		fmt.Sprintf("%d unlabeled inputs", unlabeled))

	emptyLinks := 0
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if strings.TrimSpace(s.Text()) == "" && !hasAccessibleName(s) {
			emptyLinks++
		}
	})
	add("link-name", "Links have discernible text", emptyLinks == 0,
		fmt.Sprintf("%d links without text", emptyLinks))

	viewportOK := true
	if content, ok := doc.Find(`meta[name="viewport"]`).Attr("content"); ok {
		if strings.Contains(content, "user-scalable=no") || strings.Contains(content, "maximum-scale=1") {
			viewportOK = false
		}
	}
	add("meta-viewport-scalable", "Viewport does not disable zoom", viewportOK, "")

	return checks
}

func inputLabeled(doc *goquery.Document, s *goquery.Selection) bool {
	if _, ok := s.Attr("aria-label"); ok {
		return true
	}
	if _, ok := s.Attr("aria-labelledby"); ok {
		return true
	}
	id, ok := s.Attr("id")
	if !ok || id == "" {
		return false
	}
	return doc.Find(fmt.Sprintf(`label[for=%q]`, id)).Length() > 0
}

func hasAccessibleName(s *goquery.Selection) bool {
	if label, ok := s.Attr("aria-label"); ok && strings.TrimSpace(label) != "" {
		return true
	}
	if s.Find("img[alt]").Length() > 0 {
		return true
	}
	return false
}

func seoChecks(doc *goquery.Document) []Check {
	var checks []Check
	add := func(id, title string, passed bool, detail string) {
		checks = append(checks, Check{
			Category: audit.CategorySEO,
			ID:       id, Title: title, Passed: passed, Detail: detail,
		})
	}

	title := strings.TrimSpace(doc.Find("head title").First().Text())
	add("document-title", "Document has a title", title != "", "")

	desc, _ := doc.Find(`meta[name="description"]`).Attr("content")
	add("meta-description", "Document has a meta description", strings.TrimSpace(desc) != "", "")

	add("heading", "Document has an h1 heading", doc.Find("h1").Length() > 0, "")

	_, hasViewport := doc.Find(`meta[name="viewport"]`).Attr("content")
	add("viewport", "Document has a viewport meta tag", hasViewport, "")

	robots, _ := doc.Find(`meta[name="robots"]`).Attr("content")
	add("crawlable", "Page is not blocked from indexing",
		!strings.Contains(strings.ToLower(robots), "noindex"), "")

	return checks
}

func bestPracticeChecks(page Page, doc *goquery.Document) []Check {
	var checks []Check
	add := func(id, title string, passed bool, detail string) {
		checks = append(checks, Check{
			Category: audit.CategoryBestPractices,
			ID:       id, Title: title, Passed: passed, Detail: detail,
		})
	}

	add("uses-https", "Page is served over HTTPS",
		strings.HasPrefix(page.FinalURL, "https://"), page.FinalURL)

	add("status-ok", "Main document responds with a success status",
		page.StatusCode >= 200 && page.StatusCode < 400,
		fmt.Sprintf("status %d", page.StatusCode))

	deprecated := doc.Find("font, center, marquee, blink").Length()
	add("no-deprecated-elements", "Avoids deprecated HTML elements",
		deprecated == 0, fmt.Sprintf("%d deprecated elements", deprecated))

	unsafeTargets := 0
	doc.Find(`a[target="_blank"]`).Each(func(_ int, s *goquery.Selection) {
		rel, _ := s.Attr("rel")
		if !strings.Contains(rel, "noopener") && !strings.Contains(rel, "noreferrer") {
			unsafeTargets++
		}
	})
	add("rel-noopener", "External links opening new tabs use rel=noopener",
		unsafeTargets == 0, fmt.Sprintf("%d unsafe target=_blank links", unsafeTargets))

	mixed := 0
	if strings.HasPrefix(page.FinalURL, "https://") {
		doc.Find("img[src], script[src], link[href]").Each(func(_ int, s *goquery.Selection) {
			src, ok := s.Attr("src")
			if !ok {
				src, _ = s.Attr("href")
			}
			if strings.HasPrefix(src, "http://") {
				mixed++
			}
		})
	}
	add("no-mixed-content", "No insecure resources on a secure page",
		mixed == 0, fmt.Sprintf("%d insecure resource references", mixed))

	return checks
}
