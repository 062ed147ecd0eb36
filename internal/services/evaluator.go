package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quizforge/quizforge-backend/internal/clients/groq"
	"github.com/quizforge/quizforge-backend/internal/logger"
	"github.com/quizforge/quizforge-backend/internal/types"
)

const defaultWrongExplanation = "The selected answer is incorrect. Review the code logic carefully."

// EvaluationResult is what a single evaluation round-trip produces. History
// is ready for persistence once the caller adds the timing fields; it is nil
// when there were no questions to evaluate.
type EvaluationResult struct {
	Score        int
	Total        int
	Explanations []string
	History      *types.QuizAttempt
}

// EvaluatorService scores submitted answers against the generated questions
// and synthesizes targeted explanations for the incorrect ones.
type EvaluatorService interface {
	Evaluate(ctx context.Context, username, topic string, subtopics, userAnswers []string, questions []types.Question) *EvaluationResult
}

type evaluatorService struct {
	log *logger.Logger
	llm LLMClient
}

func NewEvaluatorService(log *logger.Logger, llm LLMClient) EvaluatorService {
	return &evaluatorService{
		log: log.With("service", "EvaluatorService"),
		llm: llm,
	}
}

// Evaluate compares answers case-insensitively in question order. An answer
// beyond the submitted sequence counts as empty and therefore incorrect.
func (es *evaluatorService) Evaluate(ctx context.Context, username, topic string, subtopics, userAnswers []string, questions []types.Question) *EvaluationResult {
	if len(questions) == 0 {
		return &EvaluationResult{Score: 0, Total: 0, Explanations: []string{}}
	}

	score := 0
	explanations := make([]string, 0, len(questions))

	for i, question := range questions {
		correct := strings.ToUpper(strings.TrimSpace(question.Answer))
		given := ""
		if i < len(userAnswers) {
			given = strings.ToUpper(strings.TrimSpace(userAnswers[i]))
		}

		if given == correct {
			score++
			existing := question.Explanation
			if existing == "" {
				existing = "No explanation provided."
			}
			explanations = append(explanations, "✅ Correct! "+existing)
		} else {
			explanation := es.strictExplanation(ctx, question, correct, given)
			explanations = append(explanations,
				fmt.Sprintf("❌ Your answer: %s. Correct: %s. %s", given, correct, explanation))
		}
	}

	scoreVal := score
	history := &types.QuizAttempt{
		Username:  username,
		Topic:     topic,
		Subtopics: subtopics,
		Score:     &scoreVal,
		Total:     len(questions),
		Answers:   userAnswers,
		Questions: questions,
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
	}

	return &EvaluationResult{
		Score:        score,
		Total:        len(questions),
		Explanations: explanations,
		History:      history,
	}
}

const strictExplanationPromptFmt = `
For this programming question:
Question: %s

Options:
%s

The correct answer is: %s
The user selected: %s

Generate a STRICT explanation that:
1. Briefly explains why %s is correct (max 2 sentences)
2. Briefly explains why %s is wrong (max 2 sentences)
3. Focus ONLY on the technical reasoning from the code/question
4. Do NOT introduce new concepts or alternatives
5. Do NOT suggest answers not in the options
6. Keep it under 100 words
7. Base explanation ONLY on the provided code and options

Explanation:
`

// strictExplanation asks the model why the correct answer is right and the
// given one wrong, constrained to the question's own text and options. A
// response that references an option letter the question does not have is
// discarded in favor of the question's stored explanation.
func (es *evaluatorService) strictExplanation(ctx context.Context, question types.Question, correct, given string) string {
	fallback := question.Explanation
	if fallback == "" {
		fallback = defaultWrongExplanation
	}

	prompt := fmt.Sprintf(strictExplanationPromptFmt,
		question.Question,
		strings.Join(question.Options, "\n"),
		correct, given, correct, given)

	explanation, err := es.llm.ChatCompletion(ctx, prompt, groq.CallOptions{Temperature: 0.3, MaxTokens: 150})
	if err != nil {
		es.log.Error("Error generating explanation", "error", err)
		return fallback
	}

	if !validExplanation(explanation, question.Options) {
		es.log.Warn("Explanation referenced an option letter outside the question, using stored explanation")
		return fallback
	}
	return explanation
}

// validExplanation rejects explanations that reference an option letter not
// present among the question's own option labels.
func validExplanation(explanation string, options []string) bool {
	present := make(map[byte]bool, len(options))
	for _, option := range options {
		trimmed := strings.TrimSpace(option)
		if len(trimmed) >= 2 && trimmed[1] == ')' && trimmed[0] >= 'A' && trimmed[0] <= 'D' {
			present[trimmed[0]] = true
		}
	}
	for _, letter := range []byte{'A', 'B', 'C', 'D'} {
		if strings.Contains(explanation, fmt.Sprintf(" %c) ", letter)) && !present[letter] {
			return false
		}
	}
	return true
}
