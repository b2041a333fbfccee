package audit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/beaconlabs/beacon/internal/metrics"
	"github.com/beaconlabs/beacon/internal/progress"
)

// scriptedRunner returns canned results and records concurrency.
type scriptedRunner struct {
	mu        sync.Mutex
	inFlight  int
	maxSeen   int
	delay     time.Duration
	failHosts map[string]bool
	panicURL  string
}

func (s *scriptedRunner) Run(_ context.Context, url string) Result {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.maxSeen {
		s.maxSeen = s.inFlight
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if url == s.panicURL {
		panic("engine went sideways")
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	for host, fail := range s.failHosts {
		if fail && strings.Contains(url, host) {
			return FailedResult(url, fmt.Errorf("scripted failure for %s", url))
		}
	}
	return Result{URL: url, Scores: Scores{Performance: NewScore(100)}, Duration: time.Millisecond}
}

func TestScheduler_PreservesInputOrder(t *testing.T) {
	t.Parallel()
	metrics.Init()

	urls := []string{
		"https://a.test", "https://b.test", "https://c.test",
		"https://d.test", "https://e.test",
	}
	runner := &scriptedRunner{delay: 5 * time.Millisecond}
	sched := NewScheduler(runner, 3, 0, 0, progress.Nop{}, zap.NewNop())

	results := sched.RunAll(context.Background(), urls)

	require.Len(t, results, len(urls))
	for i, url := range urls {
		require.Equal(t, url, results[i].URL)
	}
}

func TestScheduler_SequentialRunsOneAtATime(t *testing.T) {
	t.Parallel()
	metrics.Init()

	urls := []string{"https://a.test", "https://b.test", "https://c.test"}
	runner := &scriptedRunner{delay: 5 * time.Millisecond}
	sched := NewScheduler(runner, 1, 0, 0, progress.Nop{}, zap.NewNop())

	results := sched.RunAll(context.Background(), urls)

	require.Len(t, results, 3)
	require.Equal(t, 1, runner.maxSeen)
}

func TestScheduler_BatchesBoundConcurrency(t *testing.T) {
	t.Parallel()
	metrics.Init()

	var urls []string
	for i := 0; i < 8; i++ {
		urls = append(urls, fmt.Sprintf("https://site%d.test", i))
	}
	runner := &scriptedRunner{delay: 10 * time.Millisecond}
	sched := NewScheduler(runner, 4, 0, 0, progress.Nop{}, zap.NewNop())

	results := sched.RunAll(context.Background(), urls)

	require.Len(t, results, 8)
	require.LessOrEqual(t, runner.maxSeen, 4)
	require.Greater(t, runner.maxSeen, 1, "batch members should overlap")
}

func TestScheduler_FailureDoesNotAbortSiblings(t *testing.T) {
	t.Parallel()
	metrics.Init()

	urls := []string{"https://good.test", "https://bad.test", "https://fine.test"}
	runner := &scriptedRunner{failHosts: map[string]bool{"bad.test": true}}
	sched := NewScheduler(runner, 3, 0, 0, progress.Nop{}, zap.NewNop())

	results := sched.RunAll(context.Background(), urls)

	require.Len(t, results, 3)
	require.False(t, results[0].Failed())
	require.True(t, results[1].Failed())
	require.False(t, results[2].Failed())
}

func TestScheduler_PanicBecomesFailureResult(t *testing.T) {
	t.Parallel()
	metrics.Init()

	urls := []string{"https://ok.test", "https://explodes.test"}
	runner := &scriptedRunner{panicURL: "https://explodes.test"}
	sched := NewScheduler(runner, 2, 0, 0, progress.Nop{}, zap.NewNop())

	results := sched.RunAll(context.Background(), urls)

	require.Len(t, results, 2)
	require.False(t, results[0].Failed())
	require.True(t, results[1].Failed())
	require.Contains(t, results[1].Error, "job panicked")
	require.Equal(t, UnavailableScores(), results[1].Scores)
}

func TestScheduler_EmptyInput(t *testing.T) {
	t.Parallel()
	metrics.Init()

	sched := NewScheduler(&scriptedRunner{}, 2, 0, 0, progress.Nop{}, zap.NewNop())
	results := sched.RunAll(context.Background(), nil)
	require.Empty(t, results)
}

func TestScheduler_PacingBetweenBatches(t *testing.T) {
	t.Parallel()
	metrics.Init()

	urls := []string{"https://a.test", "https://b.test", "https://c.test"}
	runner := &scriptedRunner{}
	pacing := 30 * time.Millisecond
	sched := NewScheduler(runner, 1, pacing, 0, progress.Nop{}, zap.NewNop())

	start := time.Now()
	results := sched.RunAll(context.Background(), urls)
	elapsed := time.Since(start)

	require.Len(t, results, 3)
	// Two gaps between three sequential jobs, none after the last.
	require.GreaterOrEqual(t, elapsed, 2*pacing)
	require.Less(t, elapsed, 4*pacing)
}

func TestScheduler_ReportsProgress(t *testing.T) {
	t.Parallel()
	metrics.Init()

	var mu sync.Mutex
	var events []progress.Event
	reporter := reporterFunc(func(evt progress.Event) {
		mu.Lock()
		events = append(events, evt)
		mu.Unlock()
	})

	urls := []string{"https://a.test", "https://bad.test"}
	runner := &scriptedRunner{failHosts: map[string]bool{"bad.test": true}}
	sched := NewScheduler(runner, 1, 0, 0, reporter, zap.NewNop())
	sched.RunAll(context.Background(), urls)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 4)
	require.Equal(t, progress.StageJobStart, events[0].Stage)
	require.Equal(t, progress.StageJobDone, events[1].Stage)
	require.Equal(t, progress.StageJobStart, events[2].Stage)
	require.Equal(t, progress.StageJobFailed, events[3].Stage)
	require.Equal(t, 2, events[3].Total)
}

type reporterFunc func(progress.Event)

func (f reporterFunc) Report(evt progress.Event) { f(evt) }
