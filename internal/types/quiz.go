package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Question is one multiple-choice question as produced by the generator.
// Questions are transient: they only reach storage embedded in a QuizAttempt.
type Question struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
}

// HasCodeSnippet reports whether the question text embeds a fenced code block.
func (q Question) HasCodeSnippet() bool {
	for i := 0; i+2 < len(q.Question); i++ {
		if q.Question[i] == '`' && q.Question[i+1] == '`' && q.Question[i+2] == '`' {
			return true
		}
	}
	return false
}

// QuizAttempt is the only persisted quiz entity. The business key is
// (username, timestamp, topic); the timestamp is second-granularity and the
// unique index makes repeated submissions overwrite instead of duplicate.
type QuizAttempt struct {
	ID                     uuid.UUID                     `gorm:"type:uuid;primaryKey" json:"-"`
	Username               string                        `gorm:"not null;uniqueIndex:idx_quiz_attempt_key,priority:1;column:username" json:"username"`
	Timestamp              string                        `gorm:"not null;uniqueIndex:idx_quiz_attempt_key,priority:2;column:timestamp" json:"timestamp"`
	Topic                  string                        `gorm:"not null;uniqueIndex:idx_quiz_attempt_key,priority:3;column:topic" json:"topic"`
	Subtopics              datatypes.JSONSlice[string]   `gorm:"column:subtopics" json:"subtopics"`
	Score                  *int                          `gorm:"column:score" json:"score"`
	Total                  int                           `gorm:"column:total" json:"total"`
	Answers                datatypes.JSONSlice[string]   `gorm:"column:answers" json:"answers"`
	Questions              datatypes.JSONSlice[Question] `gorm:"column:questions" json:"questions"`
	TimeTaken              float64                       `gorm:"column:time_taken" json:"time_taken"`
	TimePerQuestion        datatypes.JSONSlice[float64]  `gorm:"column:time_per_question" json:"time_per_question"`
	AverageTimePerQuestion float64                       `gorm:"column:average_time_per_question" json:"average_time_per_question"`
	CreatedAt              time.Time                     `gorm:"not null" json:"-"`
	UpdatedAt              time.Time                     `gorm:"not null" json:"-"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempt"
}

func (a *QuizAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Evaluated reports whether the attempt carries a score and a non-empty
// answer sequence. Only evaluated attempts may be persisted.
func (a *QuizAttempt) Evaluated() bool {
	return a.Score != nil && len(a.Answers) > 0
}
