// Package agent implements the StudyMate panels that talk to the completion
// service, plus the session operations behind them.
package agent

import (
	"github.com/ashureev/studymate/internal/domain"
)

// SummaryRequest is the Summary panel input.
type SummaryRequest struct {
	Text string `json:"text"`
}

// SummaryResponse carries the generated summary.
type SummaryResponse struct {
	Summary string `json:"summary"`
}

// QuestionsRequest is the Questions panel input. Count 0 means the default
// and a nil IncludeExplanations means true.
type QuestionsRequest struct {
	Text                string `json:"text"`
	Count               int    `json:"count"`
	IncludeExplanations *bool  `json:"include_explanations,omitempty"`
}

// QuestionsResponse carries the generated questions as Markdown.
type QuestionsResponse struct {
	Questions string `json:"questions"`
	Count     int    `json:"count"`
}

// ChatRequest is one question to the chat tutor.
type ChatRequest struct {
	Question string `json:"question"`
}

// ChatResponse carries the answer and the visible chat window.
type ChatResponse struct {
	Answer  string            `json:"answer"`
	History []domain.ChatTurn `json:"history"`
}

// PlannerRequest is the Planner panel input. Deadline is YYYY-MM-DD; empty
// means today.
type PlannerRequest struct {
	Subject  string `json:"subject"`
	Goal     string `json:"goal"`
	Deadline string `json:"deadline"`
}

// PlannerResponse carries the new entry and the whole plan.
type PlannerResponse struct {
	Entry domain.PlannerEntry   `json:"entry"`
	Plan  []domain.PlannerEntry `json:"plan"`
}

// SessionView is what the page needs to render every panel.
type SessionView struct {
	SessionID string                `json:"session_id"`
	Chat      []domain.ChatTurn     `json:"chat"`
	ChatTotal int                   `json:"chat_total"`
	Plan      []domain.PlannerEntry `json:"plan"`
}

// NewSessionView builds the view of s.
func NewSessionView(s *domain.Session) SessionView {
	return SessionView{
		SessionID: s.ID,
		Chat:      s.RecentChatSlice(domain.ChatWindow),
		ChatTotal: s.ChatLen(),
		Plan:      s.Planner(),
	}
}
