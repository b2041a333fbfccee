package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildStructuredDoc(t *testing.T) {
	t.Parallel()

	page := Page{
		URL:        "https://example.com",
		FinalURL:   "https://example.com/",
		StatusCode: 200,
		HTML:       cleanPage,
		Timing:     fastTiming(),
		FetchedAt:  time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	scores, checks, err := ScoreDocument(page)
	require.NoError(t, err)

	doc, err := buildStructuredDoc(page, scores, checks)
	require.NoError(t, err)

	var decoded structuredReport
	require.NoError(t, json.Unmarshal(doc, &decoded))
	require.Equal(t, "https://example.com", decoded.URL)
	require.Equal(t, 200, decoded.StatusCode)
	require.Len(t, decoded.Checks, len(checks))
	require.InEpsilon(t, 100, decoded.Scores["performance"], 1e-9)
}

func TestBuildStructuredDoc_UnavailableScoreIsNull(t *testing.T) {
	t.Parallel()

	page := Page{URL: "https://example.com", FinalURL: "https://example.com", HTML: cleanPage}
	scores, checks, err := ScoreDocument(page)
	require.NoError(t, err)
	require.False(t, scores.Performance.OK, "no timing samples means no performance score")

	doc, err := buildStructuredDoc(page, scores, checks)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(doc, &decoded))
	scoreMap := decoded["scores"].(map[string]any)
	require.Nil(t, scoreMap["performance"])
}

func TestBuildRenderedDoc(t *testing.T) {
	t.Parallel()

	page := Page{
		URL:       "https://example.com",
		FinalURL:  "https://example.com",
		HTML:      cleanPage,
		Timing:    fastTiming(),
		FetchedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	scores, checks, err := ScoreDocument(page)
	require.NoError(t, err)

	doc, err := buildRenderedDoc(page, scores, checks)
	require.NoError(t, err)

	html := string(doc)
	require.Contains(t, html, "https://example.com")
	require.Contains(t, html, "<!DOCTYPE html>")
	require.Contains(t, html, "Audit report")
	for _, c := range checks {
		require.Contains(t, html, c.Title)
	}
}
