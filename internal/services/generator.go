package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/quizforge/quizforge-backend/internal/clients/groq"
	"github.com/quizforge/quizforge-backend/internal/logger"
	"github.com/quizforge/quizforge-backend/internal/types"
)

// ErrNoSubtopics is returned by GenerateQuiz when no subtopic was selected.
var ErrNoSubtopics = errors.New("no subtopics selected")

// GeneratorService builds prompts, calls the model and normalizes its output
// into question lists. Quiz generation never persists anything.
type GeneratorService interface {
	GenerateSubtopics(ctx context.Context, topic string) []string
	IsCodingTopic(topic, subtopic string) bool
	GenerateQuiz(ctx context.Context, topic string, subtopics []string, numQuestions int, username string) ([]types.Question, error)
}

type generatorService struct {
	log *logger.Logger
	llm LLMClient
}

func NewGeneratorService(log *logger.Logger, llm LLMClient) GeneratorService {
	return &generatorService{
		log: log.With("service", "GeneratorService"),
		llm: llm,
	}
}

var codingKeywords = []string{
	"python", "java", "c++", "c#", "javascript", "typescript", "programming",
	"coding", "algorithm", "data structure", "function", "class", "object",
	"variable", "loop", "array", "string", "debug", "code", "program",
	"software", "development", "html", "css", "sql", "database", "api",
	"react", "node", "vue", "angular", "django", "flask", "express",
	"oop", "object oriented", "inheritance", "polymorphism", "encapsulation",
	"abstraction", "constructor", "method", "attribute", "interface",
}

func (g *generatorService) IsCodingTopic(topic, subtopic string) bool {
	combined := strings.ToLower(topic + " " + subtopic)
	for _, keyword := range codingKeywords {
		if strings.Contains(combined, keyword) {
			return true
		}
	}
	return false
}

func fallbackSubtopicList() []string {
	return []string{
		"Fundamentals", "Key Concepts", "Advanced Topics",
		"Historical Context", "Important Figures", "Major Events",
		"Theoretical Framework", "Practical Applications", "Current Developments",
	}
}

const subtopicsPromptFmt = `
Generate exactly 9 diverse and distinct subtopics related to '%s'.
- Return exactly 9 subtopics, no more no less
- Make them comprehensive and cover different aspects
- Format as simple comma-separated values
- No numbering, no bullet points, just plain text
Example: "Subtopic1, Subtopic2, Subtopic3, ..."
`

// GenerateSubtopics asks for exactly 9 comma-separated subtopic labels. A
// shortfall triggers one supplementary request; if that second call also
// under-delivers, fewer than 9 come back. Any request failure falls back to
// the fixed generic list.
func (g *generatorService) GenerateSubtopics(ctx context.Context, topic string) []string {
	prompt := fmt.Sprintf(subtopicsPromptFmt, topic)

	text, err := g.llm.ChatCompletion(ctx, prompt, groq.CallOptions{Temperature: 0.8})
	if err != nil {
		g.log.Error("Error generating subtopics", "topic", topic, "error", err)
		return fallbackSubtopicList()
	}

	subtopics := make([]string, 0, 9)
	for _, part := range strings.Split(text, ",") {
		s := strings.TrimSpace(part)
		if len(s) > 2 {
			subtopics = append(subtopics, s)
		}
	}

	if len(subtopics) > 9 {
		subtopics = subtopics[:9]
	} else if len(subtopics) < 9 {
		remaining := 9 - len(subtopics)
		additionalPrompt := fmt.Sprintf(
			"Generate exactly %d more distinct subtopics about %s to complete a set of 9. Comma-separated:",
			remaining, topic)
		additionalText, aErr := g.llm.ChatCompletion(ctx, additionalPrompt, groq.CallOptions{})
		if aErr != nil {
			g.log.Error("Error generating supplementary subtopics", "topic", topic, "error", aErr)
			return fallbackSubtopicList()
		}
		for _, part := range strings.Split(additionalText, ",") {
			if remaining == 0 {
				break
			}
			s := strings.TrimSpace(part)
			if s == "" {
				continue
			}
			subtopics = append(subtopics, s)
			remaining--
		}
	}

	if len(subtopics) > 9 {
		subtopics = subtopics[:9]
	}
	g.log.Info("Generated subtopics", "topic", topic, "count", len(subtopics))
	return subtopics
}

// GenerateQuiz produces all numQuestions questions from the first selected
// subtopic only: generating per subtopic multiplied the question count.
func (g *generatorService) GenerateQuiz(ctx context.Context, topic string, subtopics []string, numQuestions int, username string) ([]types.Question, error) {
	if len(subtopics) == 0 {
		return nil, ErrNoSubtopics
	}

	first := subtopics[0]
	g.log.Info("Generating quiz",
		"topic", topic,
		"subtopic", first,
		"num_questions", numQuestions,
		"username", username,
	)

	questions := g.generateSubtopicQuiz(ctx, topic, first, numQuestions)
	if len(questions) > numQuestions {
		questions = questions[:numQuestions]
	}
	g.log.Info("Generated quiz", "topic", topic, "questions", len(questions), "requested", numQuestions)
	return questions, nil
}

func (g *generatorService) generateSubtopicQuiz(ctx context.Context, topic, subtopic string, numQuestions int) []types.Question {
	isCoding := g.IsCodingTopic(topic, subtopic)

	questions := g.generateOnce(ctx, topic, subtopic, numQuestions, isCoding)

	// A coding topic that came back without a single fenced code block gets
	// one regeneration with the same stricter prompt. One retry, no more;
	// a malformed second response is accepted as final.
	if isCoding && len(questions) > 0 && !anyHasCodeSnippet(questions) {
		g.log.Warn("No code snippets in programming questions, regenerating once",
			"topic", topic, "subtopic", subtopic)
		questions = g.generateOnce(ctx, topic, subtopic, numQuestions, isCoding)
	}

	if len(questions) > numQuestions {
		questions = questions[:numQuestions]
	}
	return questions
}

func (g *generatorService) generateOnce(ctx context.Context, topic, subtopic string, numQuestions int, isCoding bool) []types.Question {
	var prompt string
	if isCoding {
		prompt = codingQuizPrompt(topic, subtopic, numQuestions)
	} else {
		prompt = plainQuizPrompt(topic, subtopic, numQuestions)
	}

	text, err := g.llm.ChatCompletion(ctx, prompt, groq.CallOptions{Temperature: 0.7, MaxTokens: 4000})
	if err != nil {
		g.log.Error("Error generating quiz questions",
			"topic", topic, "subtopic", subtopic, "error", err)
		return fallbackQuestions()
	}

	items, ok := parseQuestionArray(text)
	if !ok {
		g.log.Warn("Could not parse JSON from model response, using fallback question",
			"subtopic", subtopic)
		return fallbackQuestions()
	}
	return repairQuestions(items)
}

func anyHasCodeSnippet(questions []types.Question) bool {
	for _, q := range questions {
		if q.HasCodeSnippet() {
			return true
		}
	}
	return false
}

var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

// parseQuestionArray tries a direct parse of the raw model output, then a
// parse of the first [...] span embedded in surrounding prose.
func parseQuestionArray(text string) ([]any, bool) {
	var items []any
	if err := json.Unmarshal([]byte(text), &items); err == nil {
		return items, true
	}
	if span := jsonArrayPattern.FindString(text); span != "" {
		if err := json.Unmarshal([]byte(span), &items); err == nil {
			return items, true
		}
	}
	return nil, false
}

func defaultOptions() []string {
	return []string{"A) Option A", "B) Option B", "C) Option C", "D) Option D"}
}

// repairQuestions validates each parsed item and coerces it into shape:
// exactly 4 options (placeholder labels pad, excess is truncated) and an
// answer forced into A-D, defaulting to A.
func repairQuestions(items []any) []types.Question {
	validated := make([]types.Question, 0, len(items))
	for _, item := range items {
		m, isMap := item.(map[string]any)
		if !isMap {
			continue
		}
		questionVal, hasQuestion := m["question"]
		rawOptions, hasOptions := m["options"]
		if !hasQuestion || !hasOptions {
			continue
		}

		var options []string
		if list, isList := rawOptions.([]any); isList {
			for _, o := range list {
				options = append(options, fmt.Sprint(o))
			}
			for len(options) < 4 {
				options = append(options, fmt.Sprintf("%c Option", byte('D')-byte(4-len(options))))
			}
			if len(options) > 4 {
				options = options[:4]
			}
		} else {
			options = defaultOptions()
		}

		answer, _ := m["answer"].(string)
		switch answer {
		case "A", "B", "C", "D":
		default:
			answer = "A"
		}

		explanation, _ := m["explanation"].(string)

		validated = append(validated, types.Question{
			Question:    fmt.Sprint(questionVal),
			Options:     options,
			Answer:      answer,
			Explanation: explanation,
		})
	}
	return validated
}

func fallbackQuestions() []types.Question {
	return []types.Question{
		{
			Question:    "This is a sample question. The API response could not be parsed.",
			Options:     defaultOptions(),
			Answer:      "A",
			Explanation: "This is a fallback question due to API issues.",
		},
	}
}

func plainQuizPrompt(topic, subtopic string, numQuestions int) string {
	return fmt.Sprintf(`
Create exactly %[1]d multiple-choice questions about '%[2]s' in '%[3]s'.

Return ONLY a valid JSON array with this exact structure:
[
  {
    "question": "Question text here?",
    "options": ["A) First option", "B) Second option", "C) Third option", "D) Fourth option"],
    "answer": "A",
    "explanation": "Brief explanation here"
  }
]

Requirements:
- %[1]d questions total
- Each question has exactly 4 options (A, B, C, D)
- Clear correct answer (A/B/C/D)
- Short explanation
- Return ONLY the JSON, no other text
`, numQuestions, subtopic, topic)
}

func codingQuizPrompt(topic, subtopic string, numQuestions int) string {
	return fmt.Sprintf(`
IMPORTANT: You are generating programming questions about '%[2]s' in '%[3]s'.
You MUST include ACTUAL CODE SNIPPETS in EVERY question.

CRITICAL REQUIREMENTS:
1. EVERY question MUST contain a REAL CODE SNIPPET with proper syntax highlighting
2. Use triple backticks with language tags: %[4]scpp, %[4]spython, %[4]sjava, etc.
3. Code must be 5-15 lines, well-indented, and demonstrate programming concepts
4. For C++ topics: proper headers required for code to run like <iostream>, <vector>, etc for respective language codes and 'using namespace std;' for C++
5. NO THEORY-ONLY QUESTIONS - every question must test code understanding

QUESTION FORMATS (MUST INCLUDE CODE):
- "What does this code output?"
- "What's wrong with this code?"
- "What completes this code?"
- "Which code demonstrates [concept]?"

EXAMPLES OF REQUIRED FORMAT:

C++ OOP Example:
{
  "question": "What does this C++ OOP code output?\n%[4]scpp\n#include <iostream>\nusing namespace std;\n\nclass Animal {\npublic:\n    virtual void sound() { cout << \"Animal sound\" << endl; }\n};\n\nclass Dog : public Animal {\npublic:\n    void sound() override { cout << \"Bark\" << endl; }\n};\n\nint main() {\n    Animal* animal = new Dog();\n    animal->sound();\n    return 0;\n}\n%[4]s",
  "options": ["A) Animal sound", "B) Bark", "C) Compilation error", "D) Runtime error"],
  "answer": "B",
  "explanation": "Polymorphism - Dog's sound() is called due to virtual function"
}

Java OOP Example:
{
  "question": "What's the issue with this Java inheritance code?\n%[4]sjava\nclass Vehicle {\n    private int speed;\n    public Vehicle(int s) { speed = s; }\n}\n\nclass Car extends Vehicle {\n    public Car() { }\n}\n%[4]s",
  "options": ["A) Missing constructor in Car", "B) Private field access", "C) No main method", "D) Speed should be protected"],
  "answer": "A",
  "explanation": "Car constructor doesn't call super() and Vehicle has no default constructor"
}

Return EXACTLY %[1]d questions in this JSON format. EVERY question must have code snippets.
`, numQuestions, subtopic, topic, "```")
}
