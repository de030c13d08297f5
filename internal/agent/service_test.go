package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/studymate/internal/domain"
	"github.com/ashureev/studymate/internal/store"
)

type fakeCompleter struct {
	mu      sync.Mutex
	prompts []string
	reply   func(ctx context.Context, prompt string) (string, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.reply == nil {
		return "ok", nil
	}
	return f.reply(ctx, prompt)
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func replyWith(text string) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) { return text, nil }
}

func newTestService(t *testing.T, c Completer) (*Service, *store.MemoryStore) {
	t.Helper()
	repo := store.NewMemory()
	_, err := repo.CreateSession(context.Background(), "sess", time.Now())
	require.NoError(t, err)
	svc := NewService(c, repo, time.Second, slog.Default())
	svc.now = func() time.Time { return time.Date(2026, 5, 6, 12, 0, 0, 0, time.UTC) }
	return svc, repo
}

func TestAskAppendsQuestionThenAnswer(t *testing.T) {
	fc := &fakeCompleter{reply: replyWith("  4\n")}
	svc, repo := newTestService(t, fc)

	resp, err := svc.Ask(context.Background(), "sess", ChatRequest{Question: "What is 2+2?"})
	require.NoError(t, err)
	assert.Equal(t, "4", resp.Answer)
	assert.Equal(t, []domain.ChatTurn{
		{Speaker: domain.SpeakerUser, Message: "What is 2+2?"},
		{Speaker: domain.SpeakerAssistant, Message: "4"},
	}, resp.History)

	s, err := repo.GetSession(context.Background(), "sess")
	require.NoError(t, err)
	assert.Equal(t, 2, s.ChatLen())
	assert.Equal(t, "You are a friendly AI tutor. Answer clearly and educationally: What is 2+2?", fc.prompts[0])
}

func TestAskHistoryIsLimitedToWindow(t *testing.T) {
	n := 0
	fc := &fakeCompleter{reply: func(context.Context, string) (string, error) {
		n++
		return fmt.Sprintf("a%d", n), nil
	}}
	svc, _ := newTestService(t, fc)

	var resp *ChatResponse
	var err error
	for i := 1; i <= 5; i++ {
		resp, err = svc.Ask(context.Background(), "sess", ChatRequest{Question: fmt.Sprintf("q%d", i)})
		require.NoError(t, err)
	}
	require.Len(t, resp.History, domain.ChatWindow)
	assert.Equal(t, "q3", resp.History[0].Message)
	assert.Equal(t, "a5", resp.History[5].Message)
}

func TestAskFailureAppendsNothing(t *testing.T) {
	fc := &fakeCompleter{reply: func(context.Context, string) (string, error) {
		return "", errors.New("quota exceeded")
	}}
	svc, repo := newTestService(t, fc)

	_, err := svc.Ask(context.Background(), "sess", ChatRequest{Question: "Why?"})
	var ext *domain.ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.False(t, ext.Timeout)
	assert.Equal(t, "chat_answer", ext.Op)

	s, err := repo.GetSession(context.Background(), "sess")
	require.NoError(t, err)
	assert.Equal(t, 0, s.ChatLen())
}

func TestAskBlankQuestionSkipsCompletion(t *testing.T) {
	fc := &fakeCompleter{}
	svc, _ := newTestService(t, fc)

	_, err := svc.Ask(context.Background(), "sess", ChatRequest{Question: "   "})
	assert.True(t, domain.IsValidation(err))
	assert.Zero(t, fc.calls())
}

func TestAskUnknownSession(t *testing.T) {
	fc := &fakeCompleter{}
	svc, _ := newTestService(t, fc)

	_, err := svc.Ask(context.Background(), "ghost", ChatRequest{Question: "hi"})
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
	assert.Zero(t, fc.calls())
}

func TestCompletionTimeout(t *testing.T) {
	fc := &fakeCompleter{reply: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	svc, _ := newTestService(t, fc)
	svc.timeout = 20 * time.Millisecond

	_, err := svc.Summarize(context.Background(), SummaryRequest{Text: "long text"})
	var ext *domain.ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.True(t, ext.Timeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSummarize(t *testing.T) {
	fc := &fakeCompleter{reply: replyWith("\n A short summary. \n")}
	svc, _ := newTestService(t, fc)

	resp, err := svc.Summarize(context.Background(), SummaryRequest{Text: "Mitochondria are organelles."})
	require.NoError(t, err)
	assert.Equal(t, "A short summary.", resp.Summary)
	assert.Contains(t, fc.prompts[0], "Mitochondria are organelles.")

	_, err = svc.Summarize(context.Background(), SummaryRequest{Text: ""})
	assert.True(t, domain.IsValidation(err))
	assert.Equal(t, 1, fc.calls())
}

func TestGenerateQuestionsDefaults(t *testing.T) {
	fc := &fakeCompleter{reply: replyWith("1. Why?")}
	svc, _ := newTestService(t, fc)

	resp, err := svc.GenerateQuestions(context.Background(), QuestionsRequest{Text: "Cells"})
	require.NoError(t, err)
	assert.Equal(t, 5, resp.Count)
	assert.Equal(t, "1. Why?", resp.Questions)
	assert.Contains(t, fc.prompts[0], "Generate 5 study questions")
	assert.Contains(t, fc.prompts[0], "explanations")

	no := false
	_, err = svc.GenerateQuestions(context.Background(), QuestionsRequest{Text: "Cells", Count: 3, IncludeExplanations: &no})
	require.NoError(t, err)
	assert.NotContains(t, fc.prompts[1], "explanations")

	_, err = svc.GenerateQuestions(context.Background(), QuestionsRequest{Text: "Cells", Count: 11})
	assert.True(t, domain.IsValidation(err))
	assert.Equal(t, 2, fc.calls())
}

func TestAddPlannerEntry(t *testing.T) {
	svc, _ := newTestService(t, &fakeCompleter{})
	ctx := context.Background()

	resp, err := svc.AddPlannerEntry(ctx, "sess", PlannerRequest{Subject: "Math", Goal: "Finish Chapter 5", Deadline: "2025-01-01"})
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", resp.Entry.DeadlineString())
	require.Len(t, resp.Plan, 1)

	resp, err = svc.AddPlannerEntry(ctx, "sess", PlannerRequest{Subject: "Bio", Goal: "Cells"})
	require.NoError(t, err)
	assert.Equal(t, "2026-05-06", resp.Entry.DeadlineString())
	require.Len(t, resp.Plan, 2)
	assert.Equal(t, "Math", resp.Plan[0].Subject)

	_, err = svc.AddPlannerEntry(ctx, "sess", PlannerRequest{Subject: "", Goal: "goal"})
	assert.True(t, domain.IsValidation(err))
	_, err = svc.AddPlannerEntry(ctx, "sess", PlannerRequest{Subject: "s", Goal: ""})
	assert.True(t, domain.IsValidation(err))

	s, err := svc.Session(ctx, "sess")
	require.NoError(t, err)
	assert.Len(t, s.Planner(), 2)
}

func TestEndSessionRunsHooks(t *testing.T) {
	svc, repo := newTestService(t, &fakeCompleter{})
	var ended []string
	svc.OnSessionEnd(func(id string) { ended = append(ended, id) })

	require.NoError(t, svc.EndSession(context.Background(), "sess"))
	assert.Equal(t, []string{"sess"}, ended)

	s, err := repo.GetSession(context.Background(), "sess")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestActionsOnOneSessionAreSerialized(t *testing.T) {
	var inFlight, maxInFlight int
	var mu sync.Mutex
	fc := &fakeCompleter{reply: func(context.Context, string) (string, error) {
		mu.Lock()
		inFlight++
		maxInFlight = max(maxInFlight, inFlight)
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return "a", nil
	}}
	svc, repo := newTestService(t, fc)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Ask(context.Background(), "sess", ChatRequest{Question: fmt.Sprint(i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, maxInFlight)
	s, err := repo.GetSession(context.Background(), "sess")
	require.NoError(t, err)
	assert.Equal(t, 16, s.ChatLen())
}

func TestPanelActionsRefreshSessionIdleClock(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2026, 5, 6, 12, 0, 0, 0, time.UTC)
	repo := store.NewMemory()
	_, err := repo.CreateSession(ctx, "sess", t0)
	require.NoError(t, err)

	svc := NewService(&fakeCompleter{reply: replyWith("4")}, repo, time.Second, slog.Default())
	svc.now = func() time.Time { return t0.Add(10 * time.Millisecond) }

	expired, err := repo.GetExpiredSessions(ctx, t0.Add(5*time.Millisecond))
	require.NoError(t, err)
	require.Equal(t, []string{"sess"}, expired)

	_, err = svc.Ask(ctx, "sess", ChatRequest{Question: "What is 2+2?"})
	require.NoError(t, err)
	expired, err = repo.GetExpiredSessions(ctx, t0.Add(5*time.Millisecond))
	require.NoError(t, err)
	assert.Empty(t, expired)

	svc.now = func() time.Time { return t0.Add(time.Hour) }
	_, err = svc.AddPlannerEntry(ctx, "sess", PlannerRequest{Subject: "Math", Goal: "Algebra"})
	require.NoError(t, err)
	expired, err = repo.GetExpiredSessions(ctx, t0.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestAddPlannerEntryChecksFieldsBeforeDeadline(t *testing.T) {
	svc, _ := newTestService(t, &fakeCompleter{})

	_, err := svc.AddPlannerEntry(context.Background(), "sess", PlannerRequest{Subject: "", Goal: "Algebra", Deadline: "bad"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Please fill in both fields.", verr.Message)

	_, err = svc.AddPlannerEntry(context.Background(), "sess", PlannerRequest{Subject: "Math", Goal: "Algebra", Deadline: "bad"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "deadline", verr.Field)
}
