// Package domain contains core domain types for StudyMate.
package domain

import (
	"iter"
	"time"
)

// ChatWindow is how many recent chat turns are displayed and exported.
const ChatWindow = 6

// Session holds the state of one interactive browser session: the tutor
// conversation and the study plan. Both sequences are append-only.
//
// A Session is not safe for concurrent mutation; callers serialize access
// per session.
type Session struct {
	ID         string
	CreatedAt  time.Time
	LastSeenAt time.Time

	chat []ChatTurn
	plan []PlannerEntry
}

// NewSession creates an empty session.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:         id,
		CreatedAt:  now,
		LastSeenAt: now,
	}
}

// AppendChatTurn adds a turn to the conversation. Input is validated upstream.
func (s *Session) AppendChatTurn(speaker Speaker, message string) ChatTurn {
	turn := ChatTurn{Speaker: speaker, Message: message}
	s.chat = append(s.chat, turn)
	return turn
}

// AppendPlannerEntry adds a study goal. Empty subject or goal is rejected with
// a *ValidationError and the plan is left unchanged.
func (s *Session) AppendPlannerEntry(subject, goal string, deadline time.Time) (PlannerEntry, error) {
	entry, err := NewPlannerEntry(subject, goal, deadline)
	if err != nil {
		return PlannerEntry{}, err
	}
	s.plan = append(s.plan, entry)
	return entry, nil
}

// RecentChat yields the last n turns in their original order. The sequence is
// a pure read and can be ranged over any number of times.
func (s *Session) RecentChat(n int) iter.Seq[ChatTurn] {
	return func(yield func(ChatTurn) bool) {
		if n <= 0 {
			return
		}
		start := max(len(s.chat)-n, 0)
		for _, turn := range s.chat[start:] {
			if !yield(turn) {
				return
			}
		}
	}
}

// RecentChatSlice collects RecentChat(n) into a new slice.
func (s *Session) RecentChatSlice(n int) []ChatTurn {
	out := make([]ChatTurn, 0, min(max(n, 0), len(s.chat)))
	for turn := range s.RecentChat(n) {
		out = append(out, turn)
	}
	return out
}

// ChatLen returns the total number of turns, including those outside the window.
func (s *Session) ChatLen() int {
	return len(s.chat)
}

// Planner returns a copy of the plan in insertion order.
func (s *Session) Planner() []PlannerEntry {
	out := make([]PlannerEntry, len(s.plan))
	copy(out, s.plan)
	return out
}

// Clone returns an independent copy of the session.
func (s *Session) Clone() *Session {
	c := *s
	c.chat = append([]ChatTurn(nil), s.chat...)
	c.plan = append([]PlannerEntry(nil), s.plan...)
	return &c
}
