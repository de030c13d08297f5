package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/studymate/internal/domain"
	"github.com/ashureev/studymate/internal/prompt"
	"github.com/ashureev/studymate/internal/store"
)

// DefaultCompletionTimeout bounds one completion call when none is configured.
const DefaultCompletionTimeout = 60 * time.Second

// Service runs the panel actions. Actions on the same session are serialized
// so each one runs to completion before the next starts.
type Service struct {
	completer Completer
	repo      store.Repository
	timeout   time.Duration
	logger    *slog.Logger
	now       func() time.Time

	sessionLocks sync.Map // session id -> *sync.Mutex

	hooksMu  sync.RWMutex
	endHooks []func(sessionID string)
}

// NewService creates a panel service.
func NewService(completer Completer, repo store.Repository, timeout time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultCompletionTimeout
	}
	return &Service{
		completer: completer,
		repo:      repo,
		timeout:   timeout,
		logger:    logger,
		now:       time.Now,
	}
}

// Summarize asks the completion service for a short summary of req.Text.
func (s *Service) Summarize(ctx context.Context, req SummaryRequest) (*SummaryResponse, error) {
	p, err := prompt.Summarize(req.Text)
	if err != nil {
		return nil, err
	}
	out, err := s.complete(ctx, prompt.KindSummarize, p)
	if err != nil {
		return nil, err
	}
	return &SummaryResponse{Summary: out}, nil
}

// GenerateQuestions asks for practice questions about req.Text.
func (s *Service) GenerateQuestions(ctx context.Context, req QuestionsRequest) (*QuestionsResponse, error) {
	count := req.Count
	if count == 0 {
		count = prompt.DefaultQuestions
	}
	explain := req.IncludeExplanations == nil || *req.IncludeExplanations

	p, err := prompt.Questions(req.Text, count, explain)
	if err != nil {
		return nil, err
	}
	out, err := s.complete(ctx, prompt.KindQuestions, p)
	if err != nil {
		return nil, err
	}
	return &QuestionsResponse{Questions: out, Count: count}, nil
}

// Ask answers a tutor question. On success the question and the answer are
// appended to the session chat, in that order; on failure nothing is appended.
func (s *Service) Ask(ctx context.Context, sessionID string, req ChatRequest) (*ChatResponse, error) {
	p, err := prompt.ChatAnswer(req.Question)
	if err != nil {
		return nil, err
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	if err := s.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}

	answer, err := s.complete(ctx, prompt.KindChatAnswer, p)
	if err != nil {
		return nil, err
	}

	if err := s.repo.AppendChatTurns(ctx, sessionID,
		domain.ChatTurn{Speaker: domain.SpeakerUser, Message: req.Question},
		domain.ChatTurn{Speaker: domain.SpeakerAssistant, Message: answer},
	); err != nil {
		return nil, fmt.Errorf("record chat turns: %w", err)
	}
	s.touch(ctx, sessionID)

	session, err := s.snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &ChatResponse{
		Answer:  answer,
		History: session.RecentChatSlice(domain.ChatWindow),
	}, nil
}

// AddPlannerEntry validates and appends a planner entry.
func (s *Service) AddPlannerEntry(ctx context.Context, sessionID string, req PlannerRequest) (*PlannerResponse, error) {
	now := s.now()
	entry, err := domain.NewPlannerEntry(req.Subject, req.Goal, now)
	if err != nil {
		return nil, err
	}
	deadline, err := domain.ParseDeadline(req.Deadline, now)
	if err != nil {
		return nil, err
	}
	entry.Deadline = domain.DateOf(deadline)

	unlock := s.lockSession(sessionID)
	defer unlock()

	if err := s.repo.AppendPlannerEntry(ctx, sessionID, entry); err != nil {
		return nil, fmt.Errorf("record planner entry: %w", err)
	}
	s.touch(ctx, sessionID)
	s.logger.Info("Planner entry added", "session_id", sessionID, "subject_length", len(entry.Subject))

	session, err := s.snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &PlannerResponse{Entry: entry, Plan: session.Planner()}, nil
}

// Session returns a snapshot of the session state.
func (s *Service) Session(ctx context.Context, sessionID string) (*domain.Session, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()
	return s.snapshot(ctx, sessionID)
}

// OnSessionEnd registers fn to run after a session has ended.
func (s *Service) OnSessionEnd(fn func(sessionID string)) {
	s.hooksMu.Lock()
	s.endHooks = append(s.endHooks, fn)
	s.hooksMu.Unlock()
}

// EndSession drops all state of the session and runs the end hooks.
func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	unlock := s.lockSession(sessionID)
	err := s.repo.DeleteSession(ctx, sessionID)
	unlock()
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	s.sessionLocks.Delete(sessionID)

	s.hooksMu.RLock()
	hooks := append([]func(string){}, s.endHooks...)
	s.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(sessionID)
	}
	s.logger.Info("Session ended", "session_id", sessionID)
	return nil
}

func (s *Service) lockSession(sessionID string) func() {
	v, _ := s.sessionLocks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// touch refreshes the idle clock. Socket asks never pass identity.Middleware.
func (s *Service) touch(ctx context.Context, sessionID string) {
	if err := s.repo.TouchSession(ctx, sessionID, s.now()); err != nil {
		s.logger.Warn("Failed to update session last seen", "session_id", sessionID, "error", err)
	}
}

func (s *Service) requireSession(ctx context.Context, sessionID string) error {
	_, err := s.snapshot(ctx, sessionID)
	return err
}

func (s *Service) snapshot(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil, store.ErrSessionNotFound
	}
	return session, nil
}

// complete runs one completion call bounded by the service timeout. Every
// failure comes back as a *domain.ExternalServiceError.
func (s *Service) complete(ctx context.Context, kind prompt.Kind, p string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	out, err := s.completer.Complete(ctx, p)
	duration := time.Since(start)
	if err != nil {
		timedOut := errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
		s.logger.Error("Completion failed",
			"kind", kind,
			"prompt_length", len(p),
			"duration", duration,
			"timeout", timedOut,
			"error", err,
		)
		return "", &domain.ExternalServiceError{Op: string(kind), Timeout: timedOut, Err: err}
	}

	s.logger.Info("Completion succeeded",
		"kind", kind,
		"prompt_length", len(p),
		"response_length", len(out),
		"duration", duration,
	)
	return strings.TrimSpace(out), nil
}
