package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/studymate/internal/domain"
)

func TestSummarize(t *testing.T) {
	got, err := Summarize("Photosynthesis converts light to energy.")
	require.NoError(t, err)
	assert.Equal(t, "Summarize the following text in 5–7 concise sentences:\n\nPhotosynthesis converts light to energy.", got)
}

func TestBlankInputIsRejected(t *testing.T) {
	cases := []struct {
		name    string
		req     Request
		message string
	}{
		{"summary", Request{Kind: KindSummarize, Text: "  \n\t"}, "Please enter some text first!"},
		{"questions", Request{Kind: KindQuestions, Text: ""}, "Please enter text or topic first!"},
		{"chat", Request{Kind: KindChatAnswer, Question: " "}, "Type a question first!"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(tc.req)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.message, verr.Message)
		})
	}
}

func TestQuestionsTemplate(t *testing.T) {
	got, err := Questions("The French Revolution", 7, true)
	require.NoError(t, err)
	assert.Contains(t, got, "You are StudyMate, an academic AI tutor.")
	assert.Contains(t, got, "Generate 7 study questions")
	assert.Contains(t, got, "Also include 1–2 sentence explanations")
	assert.True(t, strings.HasSuffix(got, "Text:\nThe French Revolution"))

	got, err = Questions("The French Revolution", 7, false)
	require.NoError(t, err)
	assert.NotContains(t, got, "explanations")
}

func TestQuestionsCountBounds(t *testing.T) {
	got, err := Questions("topic", 0, false)
	require.NoError(t, err)
	assert.Contains(t, got, "Generate 5 study questions")

	for _, n := range []int{MinQuestions, MaxQuestions} {
		_, err := Questions("topic", n, false)
		assert.NoError(t, err, "count %d", n)
	}
	for _, n := range []int{2, 11, -1} {
		_, err := Questions("topic", n, false)
		assert.True(t, domain.IsValidation(err), "count %d", n)
	}
}

func TestChatAnswer(t *testing.T) {
	got, err := Build(Request{Kind: KindChatAnswer, Question: "What is 2+2?"})
	require.NoError(t, err)
	assert.Equal(t, "You are a friendly AI tutor. Answer clearly and educationally: What is 2+2?", got)
}

func TestUnknownKind(t *testing.T) {
	_, err := Build(Request{Kind: "poem", Text: "x"})
	require.Error(t, err)
	assert.False(t, domain.IsValidation(err))
}
