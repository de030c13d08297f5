// Package prompt builds the text prompts sent to the completion service.
package prompt

import (
	"fmt"
	"strings"

	"github.com/ashureev/studymate/internal/domain"
)

// Kind selects a prompt template.
type Kind string

const (
	KindSummarize  Kind = "summarize"
	KindQuestions  Kind = "questions"
	KindChatAnswer Kind = "chat_answer"
)

// Question count bounds offered by the Questions panel.
const (
	MinQuestions     = 3
	MaxQuestions     = 10
	DefaultQuestions = 5
)

// Request carries the parameters of every template. Fields a template does
// not use are ignored.
type Request struct {
	Kind                Kind
	Text                string
	QuestionCount       int
	IncludeExplanations bool
	Question            string
}

// Build renders the prompt for req. Blank input is rejected with a
// *domain.ValidationError carrying the panel's warning text.
func Build(req Request) (string, error) {
	switch req.Kind {
	case KindSummarize:
		return Summarize(req.Text)
	case KindQuestions:
		return Questions(req.Text, req.QuestionCount, req.IncludeExplanations)
	case KindChatAnswer:
		return ChatAnswer(req.Question)
	default:
		return "", fmt.Errorf("unknown prompt kind %q", req.Kind)
	}
}

// Summarize asks for a 5–7 sentence summary of text.
func Summarize(text string) (string, error) {
	if isBlank(text) {
		return "", &domain.ValidationError{Field: "text", Message: "Please enter some text first!"}
	}
	return "Summarize the following text in 5–7 concise sentences:\n\n" + text, nil
}

// Questions asks for count practice questions about text. A zero count means
// DefaultQuestions.
func Questions(text string, count int, includeExplanations bool) (string, error) {
	if isBlank(text) {
		return "", &domain.ValidationError{Field: "text", Message: "Please enter text or topic first!"}
	}
	if count == 0 {
		count = DefaultQuestions
	}
	if count < MinQuestions || count > MaxQuestions {
		return "", &domain.ValidationError{
			Field:   "count",
			Message: fmt.Sprintf("Choose between %d and %d questions.", MinQuestions, MaxQuestions),
		}
	}

	var b strings.Builder
	b.WriteString("You are StudyMate, an academic AI tutor.\n")
	fmt.Fprintf(&b, "Generate %d study questions about the following topic or text.\n", count)
	b.WriteString("Each question should be unique, clear, and suitable for high school or university students.\n")
	if includeExplanations {
		b.WriteString("Also include 1–2 sentence explanations after each question.\n")
	}
	b.WriteString("Text:\n")
	b.WriteString(text)
	return b.String(), nil
}

// ChatAnswer asks the tutor persona to answer question.
func ChatAnswer(question string) (string, error) {
	if isBlank(question) {
		return "", &domain.ValidationError{Field: "question", Message: "Type a question first!"}
	}
	return "You are a friendly AI tutor. Answer clearly and educationally: " + question, nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
