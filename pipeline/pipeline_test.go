package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/findorigin/ai"
	aimock "github.com/poiesic/findorigin/ai/mock"
	"github.com/poiesic/findorigin/core"
	"github.com/poiesic/findorigin/search"
	searchmock "github.com/poiesic/findorigin/search/mock"
)

const sampleText = "Министерство финансов сообщило, что цены выросли на 15% в 2024 году. Эксперты ожидают замедления роста."

// recordingNotifier stores every notification and can fail selected calls.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	failOn   func(call int, text string) error
}

func (n *recordingNotifier) Notify(_ context.Context, sessionID, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	call := len(n.messages)
	n.messages = append(n.messages, sessionID+"|"+text)
	if n.failOn != nil {
		return n.failOn(call, text)
	}
	return nil
}

func (n *recordingNotifier) texts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.messages))
	for i, m := range n.messages {
		out[i] = m[strings.Index(m, "|")+1:]
	}
	return out
}

// recordingObserver counts run outcomes.
type recordingObserver struct {
	mu       sync.Mutex
	outcomes []Outcome
	stages   []State
	failed   []NotificationKind
}

func (o *recordingObserver) StageFinished(s State, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stages = append(o.stages, s)
}

func (o *recordingObserver) RunFinished(out Outcome, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, out)
}

func (o *recordingObserver) NotificationFailed(kind NotificationKind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, kind)
}

func results(n int) []*core.SearchResult {
	out := make([]*core.SearchResult, n)
	for i := range n {
		out[i] = searchmock.MustResult(
			fmt.Sprintf("Result %d", i+1),
			fmt.Sprintf("https://site%d.example.com/article", i+1),
			"snippet")
	}
	return out
}

func newAggregator(t *testing.T, providers ...search.Provider) *search.Aggregator {
	t.Helper()
	agg, err := search.NewAggregator(providers)
	require.NoError(t, err)
	return agg
}

func newTestPipeline(t *testing.T, searcher Searcher, comparator ai.Comparator, opts ...Option) *Pipeline {
	t.Helper()
	p, err := NewPipeline(searcher, comparator, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func TestNewPipeline_Validation(t *testing.T) {
	agg := newAggregator(t)

	_, err := NewPipeline(nil, aimock.NewMockComparator())
	assert.ErrorIs(t, err, ErrSearcherRequired)

	_, err = NewPipeline(agg, nil)
	assert.ErrorIs(t, err, ErrComparatorRequired)

	_, err = NewPipeline(agg, aimock.NewMockComparator(), WithTopN(0))
	assert.Error(t, err)

	_, err = NewPipeline(agg, aimock.NewMockComparator(), WithRunTimeout(0))
	assert.Error(t, err)

	_, err = NewPipeline(agg, aimock.NewMockComparator(), WithMaxResults(-1))
	assert.Error(t, err)
}

func TestRank_Ranked(t *testing.T) {
	provider := searchmock.NewMockProvider("google", results(4)...)
	comparator := aimock.NewMockComparator()
	p := newTestPipeline(t, newAggregator(t, provider), comparator)

	report, err := p.Rank(context.Background(), sampleText)
	require.NoError(t, err)

	assert.Equal(t, OutcomeRanked, report.Outcome)
	assert.False(t, report.Fallback())
	assert.NotEmpty(t, report.RunID)
	assert.Len(t, report.Candidates, 4)
	require.Len(t, report.Comparisons, 3)
	assert.Equal(t, []int{90, 80, 70}, []int{
		report.Comparisons[0].RelevanceScore,
		report.Comparisons[1].RelevanceScore,
		report.Comparisons[2].RelevanceScore,
	})
	assert.Equal(t, []State{
		StateReceived, StateAnalyzed, StateSearching, StateSearchOk,
		StateComparing, StateCompareOk, StateSelected,
	}, report.States)

	assert.Equal(t, 1, comparator.CallCount())
	assert.Equal(t, report.Queries, provider.Queries())
	assert.LessOrEqual(t, len(report.Queries), 5)
}

func TestRank_ComparatorFailureUsesHeuristicScores(t *testing.T) {
	tests := []struct {
		name       string
		candidates int
		want       int
	}{
		{"more candidates than top n", 5, 3},
		{"fewer candidates than top n", 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found := results(tt.candidates)
			provider := searchmock.NewMockProvider("google", found...)
			comparator := aimock.NewFailingComparator(errors.New("connection refused"))
			p := newTestPipeline(t, newAggregator(t, provider), comparator)

			report, err := p.Rank(context.Background(), sampleText)
			require.NoError(t, err)

			assert.Equal(t, OutcomeFallback, report.Outcome)
			assert.True(t, report.Fallback())
			require.Len(t, report.Comparisons, tt.want)
			for i, c := range report.Comparisons {
				assert.Same(t, found[i], c.Source)
				assert.Equal(t, 50, c.RelevanceScore)
				assert.Equal(t, core.ConfidenceMedium, c.Confidence)
				assert.Equal(t, ai.ExplanationUnavailable, c.Explanation)
			}
			assert.Contains(t, report.States, StateCompareFailed)
			assert.Contains(t, report.States, StateFallbackScored)
			assert.Equal(t, StateSelected, report.States[len(report.States)-1])
		})
	}
}

func TestRank_NoProviders(t *testing.T) {
	provider := searchmock.NewMockProvider("google", results(3)...)
	provider.Unconfigured = true
	comparator := aimock.NewMockComparator()
	p := newTestPipeline(t, newAggregator(t, provider), comparator)

	report, err := p.Rank(context.Background(), sampleText)
	require.NoError(t, err)

	assert.Equal(t, OutcomeNoProviders, report.Outcome)
	assert.Contains(t, report.States, StateSearchFailed)
	assert.Zero(t, provider.CallCount())
	assert.Zero(t, comparator.CallCount())
}

func TestRank_NoSources(t *testing.T) {
	comparator := aimock.NewMockComparator()
	p := newTestPipeline(t, newAggregator(t, searchmock.NewMockProvider("google")), comparator)

	report, err := p.Rank(context.Background(), sampleText)
	require.NoError(t, err)

	assert.Equal(t, OutcomeNoSources, report.Outcome)
	assert.Contains(t, report.States, StateSearchEmpty)
	assert.Zero(t, comparator.CallCount())
}

func TestRank_AllProvidersFail(t *testing.T) {
	p := newTestPipeline(t,
		newAggregator(t,
			searchmock.NewFailingProvider("google", errors.New("quota")),
			searchmock.NewFailingProvider("bing", errors.New("quota")),
		),
		aimock.NewMockComparator())

	report, err := p.Rank(context.Background(), sampleText)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoSources, report.Outcome)
}

func TestRank_NothingRelevant(t *testing.T) {
	comparator := aimock.NewMockComparator()
	comparator.CompareFunc = func(_ context.Context, _ string, c []*core.SearchResult) ([]*core.ComparisonResult, error) {
		out := ai.FallbackComparisons(c, "weak")
		for _, r := range out {
			r.RelevanceScore = 20
		}
		return out, nil
	}
	p := newTestPipeline(t, newAggregator(t, searchmock.NewMockProvider("google", results(3)...)), comparator)

	report, err := p.Rank(context.Background(), sampleText)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoRelevant, report.Outcome)
	assert.Empty(t, report.Comparisons)
}

func TestRank_InvalidComparisonsAreDiscarded(t *testing.T) {
	comparator := aimock.NewMockComparator()
	comparator.CompareFunc = func(_ context.Context, _ string, c []*core.SearchResult) ([]*core.ComparisonResult, error) {
		return []*core.ComparisonResult{
			nil,
			{RelevanceScore: 95, Confidence: core.ConfidenceHigh},
			{Source: c[0], RelevanceScore: 150, Confidence: core.ConfidenceHigh},
			{Source: c[1], RelevanceScore: 90, Confidence: "certain"},
			{Source: c[2], RelevanceScore: 80, Confidence: core.ConfidenceHigh, Explanation: "kept"},
		}, nil
	}
	p := newTestPipeline(t, newAggregator(t, searchmock.NewMockProvider("google", results(3)...)), comparator)

	report, err := p.Rank(context.Background(), sampleText)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRanked, report.Outcome)
	require.Len(t, report.Comparisons, 1)
	assert.Equal(t, "kept", report.Comparisons[0].Explanation)
}

func TestRank_EmptyText(t *testing.T) {
	p := newTestPipeline(t, newAggregator(t), aimock.NewMockComparator())

	_, err := p.Rank(context.Background(), "  **  ** ")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestRank_ShortTextIsSearchedVerbatim(t *testing.T) {
	provider := searchmock.NewMockProvider("google", results(1)...)
	p := newTestPipeline(t, newAggregator(t, provider), aimock.NewMockComparator())

	report, err := p.Rank(context.Background(), "Привет мир")
	require.NoError(t, err)
	assert.Equal(t, []string{"Привет мир"}, report.Queries)
	assert.Equal(t, []string{"Привет мир"}, provider.Queries())
}

func TestRank_PreferredTypes(t *testing.T) {
	found := []*core.SearchResult{
		searchmock.MustResult("Blog", "https://someone.blogspot.com/post", ""),
		searchmock.MustResult("Ministry", "https://minfin.gov.ru/press", ""),
	}
	comparator := aimock.NewMockComparator()
	comparator.CompareFunc = func(_ context.Context, _ string, c []*core.SearchResult) ([]*core.ComparisonResult, error) {
		return ai.FallbackComparisons(c, "keep order"), nil
	}
	p := newTestPipeline(t, newAggregator(t, searchmock.NewMockProvider("google", found...)), comparator)

	report, err := p.Rank(context.Background(), sampleText, core.SourceTypeOfficial)
	require.NoError(t, err)
	require.Len(t, report.Candidates, 2)
	assert.Equal(t, core.SourceTypeOfficial, report.Candidates[0].SourceType)

	report, err = p.Rank(context.Background(), sampleText)
	require.NoError(t, err)
	assert.Equal(t, "Blog", report.Candidates[0].Title)
}

func TestRank_ContextCancelled(t *testing.T) {
	p := newTestPipeline(t, newAggregator(t, searchmock.NewMockProvider("google", results(1)...)), aimock.NewMockComparator())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Rank(ctx, sampleText)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_NotificationOrder(t *testing.T) {
	notifier := &recordingNotifier{}
	p := newTestPipeline(t,
		newAggregator(t, searchmock.NewMockProvider("google", results(3)...)),
		aimock.NewMockComparator(),
		WithNotifier(notifier))

	report, err := p.Run(context.Background(), "42", sampleText)
	require.NoError(t, err)
	assert.Equal(t, StateDelivered, report.States[len(report.States)-1])

	texts := notifier.texts()
	require.Len(t, texts, 4)
	assert.Equal(t, MessageAck, texts[0])
	assert.Equal(t, MessageSearching, texts[1])
	assert.Equal(t, MessageComparing, texts[2])
	assert.True(t, strings.HasPrefix(texts[3], resultHeader))
	assert.Contains(t, texts[3], "https://site1.example.com/article")
	assert.True(t, strings.HasPrefix(notifier.messages[0], "42|"))
}

func TestRun_AckFailureDoesNotStopRun(t *testing.T) {
	observer := &recordingObserver{}
	notifier := &recordingNotifier{failOn: func(call int, _ string) error {
		if call == 0 {
			return errors.New("telegram down")
		}
		return nil
	}}
	p := newTestPipeline(t,
		newAggregator(t, searchmock.NewMockProvider("google", results(3)...)),
		aimock.NewMockComparator(),
		WithNotifier(notifier),
		WithObserver(observer))

	report, err := p.Run(context.Background(), "42", sampleText)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRanked, report.Outcome)
	assert.Len(t, notifier.texts(), 4)
	assert.Equal(t, []NotificationKind{NotificationAck}, observer.failed)
}

func TestRun_StatusFailuresAreSwallowed(t *testing.T) {
	notifier := &recordingNotifier{failOn: func(_ int, text string) error {
		if text == MessageSearching || text == MessageComparing {
			return errors.New("rate limited")
		}
		return nil
	}}
	p := newTestPipeline(t,
		newAggregator(t, searchmock.NewMockProvider("google", results(3)...)),
		aimock.NewMockComparator(),
		WithNotifier(notifier))

	_, err := p.Run(context.Background(), "42", sampleText)
	assert.NoError(t, err)
}

func TestRun_FinalDeliveryFailure(t *testing.T) {
	notifier := &recordingNotifier{failOn: func(call int, _ string) error {
		if call == 3 {
			return errors.New("chat not found")
		}
		return nil
	}}
	p := newTestPipeline(t,
		newAggregator(t, searchmock.NewMockProvider("google", results(3)...)),
		aimock.NewMockComparator(),
		WithNotifier(notifier))

	report, err := p.Run(context.Background(), "42", sampleText)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDelivery)

	var derr *DeliveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "42", derr.SessionID)
	assert.Equal(t, NotificationFinal, derr.Kind)

	require.NotNil(t, report)
	assert.NotContains(t, report.States, StateDelivered)
}

func TestRun_NegativeOutcomesSendOneExplanation(t *testing.T) {
	unconfigured := searchmock.NewMockProvider("google")
	unconfigured.Unconfigured = true

	tests := []struct {
		name     string
		provider *searchmock.MockProvider
		text     string
		final    string
	}{
		{"no sources", searchmock.NewMockProvider("google"), sampleText, MessageNoSources},
		{"no providers", unconfigured, sampleText, MessageNoProviders},
		{"empty text", searchmock.NewMockProvider("google"), "   ", MessageEmptyText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &recordingNotifier{}
			p := newTestPipeline(t, newAggregator(t, tt.provider), aimock.NewMockComparator(), WithNotifier(notifier))

			_, err := p.Run(context.Background(), "7", tt.text)
			require.NoError(t, err)

			texts := notifier.texts()
			assert.Equal(t, MessageAck, texts[0])
			assert.Equal(t, tt.final, texts[len(texts)-1])

			explanations := 0
			for _, text := range texts {
				if text == tt.final {
					explanations++
				}
			}
			assert.Equal(t, 1, explanations)
		})
	}
}

func TestRun_ReasoningUnavailableDeliversFallbackList(t *testing.T) {
	notifier := &recordingNotifier{}
	p := newTestPipeline(t,
		newAggregator(t, searchmock.NewMockProvider("google", results(5)...)),
		aimock.NewFailingComparator(errors.New("timeout")),
		WithNotifier(notifier))

	report, err := p.Run(context.Background(), "7", sampleText)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFallback, report.Outcome)

	texts := notifier.texts()
	final := texts[len(texts)-1]
	assert.Contains(t, final, fallbackNote)
	assert.Contains(t, final, "3. Result 3")
	assert.NotContains(t, final, "4. Result 4")
}

func TestRun_RequiresNotifier(t *testing.T) {
	p := newTestPipeline(t, newAggregator(t), aimock.NewMockComparator())

	_, err := p.Run(context.Background(), "1", sampleText)
	assert.ErrorIs(t, err, ErrNotifierRequired)

	_, err = p.Submit(context.Background(), "1", sampleText)
	assert.ErrorIs(t, err, ErrNotifierRequired)
}

func TestSubmit_DetachedRunSurvivesCallerCancellation(t *testing.T) {
	notifier := &recordingNotifier{}
	observer := &recordingObserver{}
	p := newTestPipeline(t,
		newAggregator(t, searchmock.NewMockProvider("google", results(3)...)),
		aimock.NewMockComparator(),
		WithNotifier(notifier),
		WithObserver(observer),
		WithPoolSize(2))

	ctx, cancel := context.WithCancel(context.Background())
	runID, err := p.Submit(ctx, "99", sampleText)
	require.NoError(t, err)
	assert.NotEmpty(t, runID)
	cancel()

	p.Wait()

	texts := notifier.texts()
	require.Len(t, texts, 4)
	assert.Equal(t, MessageAck, texts[0])
	assert.True(t, strings.HasPrefix(texts[3], resultHeader))
	assert.Equal(t, []Outcome{OutcomeRanked}, observer.outcomes)
}

func TestSubmit_RunTimeoutStillExplains(t *testing.T) {
	blocking := &searchmock.MockProvider{
		ProviderName: "google",
		SearchFunc: func(ctx context.Context, _ string, _ int) ([]*core.SearchResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	notifier := &recordingNotifier{}
	p := newTestPipeline(t,
		newAggregator(t, blocking),
		aimock.NewMockComparator(),
		WithNotifier(notifier),
		WithRunTimeout(50*time.Millisecond))

	_, err := p.Submit(context.Background(), "5", sampleText)
	require.NoError(t, err)
	p.Wait()

	texts := notifier.texts()
	require.NotEmpty(t, texts)
	assert.Equal(t, MessageFailed, texts[len(texts)-1])
}

func TestSubmit_ConcurrentRunsAreIndependent(t *testing.T) {
	notifier := &recordingNotifier{}
	p := newTestPipeline(t,
		newAggregator(t, searchmock.NewMockProvider("google", results(3)...)),
		aimock.NewMockComparator(),
		WithNotifier(notifier),
		WithPoolSize(10))

	for i := range 10 {
		_, err := p.Submit(context.Background(), fmt.Sprintf("chat-%d", i), sampleText)
		require.NoError(t, err)
	}
	p.Wait()

	perSession := map[string][]string{}
	notifier.mu.Lock()
	for _, m := range notifier.messages {
		session, text, _ := strings.Cut(m, "|")
		perSession[session] = append(perSession[session], text)
	}
	notifier.mu.Unlock()

	require.Len(t, perSession, 10)
	for session, texts := range perSession {
		require.Len(t, texts, 4, session)
		assert.Equal(t, MessageAck, texts[0], session)
		assert.Equal(t, MessageSearching, texts[1], session)
		assert.Equal(t, MessageComparing, texts[2], session)
		assert.True(t, strings.HasPrefix(texts[3], resultHeader), session)
	}
}

func TestSubmit_SaturatedPoolFailsFast(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	blocking := &searchmock.MockProvider{
		ProviderName: "google",
		SearchFunc: func(ctx context.Context, _ string, _ int) ([]*core.SearchResult, error) {
			select {
			case started <- struct{}{}:
			default:
			}
			<-release
			return results(3), nil
		},
	}
	notifier := &recordingNotifier{}
	p := newTestPipeline(t,
		newAggregator(t, blocking),
		aimock.NewMockComparator(),
		WithNotifier(notifier),
		WithPoolSize(1))

	_, err := p.Submit(context.Background(), "first", sampleText)
	require.NoError(t, err)
	<-started

	done := make(chan error, 1)
	go func() {
		_, err := p.Submit(context.Background(), "second", sampleText)
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrPipelineBusy)
	case <-time.After(time.Second):
		t.Fatal("Submit waited for a free worker")
	}

	close(release)
	p.Wait()

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	for _, m := range notifier.messages {
		assert.False(t, strings.HasPrefix(m, "second|"), m)
	}
}

func TestSubmit_AfterRelease(t *testing.T) {
	notifier := &recordingNotifier{}
	p, err := NewPipeline(
		newAggregator(t, searchmock.NewMockProvider("google", results(3)...)),
		aimock.NewMockComparator(),
		WithNotifier(notifier))
	require.NoError(t, err)

	p.Release()
	p.Release()

	_, err = p.Submit(context.Background(), "1", sampleText)
	assert.ErrorIs(t, err, ErrPipelineClosed)
	assert.Empty(t, notifier.texts())
}

func TestSubmit_ConcurrentWithRelease(t *testing.T) {
	notifier := &recordingNotifier{}
	p, err := NewPipeline(
		newAggregator(t, searchmock.NewMockProvider("google", results(3)...)),
		aimock.NewMockComparator(),
		WithNotifier(notifier),
		WithPoolSize(16))
	require.NoError(t, err)

	var wg sync.WaitGroup
	var accepted sync.Map
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session := fmt.Sprintf("chat-%d", i)
			if _, err := p.Submit(context.Background(), session, sampleText); err == nil {
				accepted.Store(session, true)
			} else {
				assert.True(t, errors.Is(err, ErrPipelineClosed) || errors.Is(err, ErrPipelineBusy), err)
			}
		}()
	}
	p.Release()
	wg.Wait()

	perSession := map[string]int{}
	notifier.mu.Lock()
	for _, m := range notifier.messages {
		session, _, _ := strings.Cut(m, "|")
		perSession[session]++
	}
	notifier.mu.Unlock()

	for session, n := range perSession {
		_, ok := accepted.Load(session)
		assert.True(t, ok, "notified session %s was not accepted", session)
		assert.Equal(t, 4, n, session)
	}
}
