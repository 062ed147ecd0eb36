package services

import (
	"context"

	"github.com/quizforge/quizforge-backend/internal/clients/groq"
)

// LLMClient is the slice of the Groq client the quiz services need.
// Satisfied by groq.Client; tests substitute fakes.
type LLMClient interface {
	ChatCompletion(ctx context.Context, prompt string, opts groq.CallOptions) (string, error)
}
