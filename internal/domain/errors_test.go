package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	kind, msg := Classify(fmt.Errorf("wrap: %w", &ValidationError{Field: "text", Message: "Please enter some text first!"}))
	assert.Equal(t, KindValidation, kind)
	assert.Equal(t, "Please enter some text first!", msg)

	kind, msg = Classify(&ExternalServiceError{Op: "summarize", Err: errors.New("quota exceeded")})
	assert.Equal(t, KindExternalService, kind)
	assert.Contains(t, msg, "quota exceeded")

	kind, msg = Classify(&ExternalServiceError{Op: "summarize", Timeout: true, Err: context.DeadlineExceeded})
	assert.Equal(t, KindExternalService, kind)
	assert.Contains(t, msg, "too long")

	kind, _ = Classify(errors.New("disk on fire"))
	assert.Equal(t, KindInternal, kind)
}

func TestExternalServiceErrorUnwraps(t *testing.T) {
	err := fmt.Errorf("ask: %w", &ExternalServiceError{Op: "chat_answer", Timeout: true, Err: context.DeadlineExceeded})
	assert.True(t, IsExternalService(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, IsValidation(err))
}
