// Package export renders a session as the downloadable study pack.
package export

import (
	"strings"

	"github.com/ashureev/studymate/internal/domain"
)

const (
	// FileName is the suggested name of the downloaded document.
	FileName = "studymate_export.txt"
	// ContentType of the document.
	ContentType = "text/plain; charset=utf-8"

	header = "StudyMate Export"
)

// Format renders the plan and the last domain.ChatWindow chat turns as plain
// text. The output depends only on the session contents; nothing is escaped.
func Format(s *domain.Session) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")

	b.WriteString("Your Study Plans:\n")
	for _, e := range s.Planner() {
		b.WriteString(e.Subject)
		b.WriteString(" — ")
		b.WriteString(e.Goal)
		b.WriteString(" (by ")
		b.WriteString(e.DeadlineString())
		b.WriteString(")\n")
	}
	b.WriteString("\n")

	b.WriteString("Chat History:\n")
	for turn := range s.RecentChat(domain.ChatWindow) {
		b.WriteString(turn.Speaker.Label())
		b.WriteString(": ")
		b.WriteString(turn.Message)
		b.WriteString("\n")
	}
	return b.String()
}
