package repos

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quizforge/quizforge-backend/internal/logger"
	"github.com/quizforge/quizforge-backend/internal/types"
)

// UpsertOutcome reports what an Upsert did. All three non-rejected
// outcomes are success from the caller's point of view.
type UpsertOutcome int

const (
	UpsertRejected UpsertOutcome = iota
	UpsertInserted
	UpsertUpdated
	UpsertUnchanged
)

func (o UpsertOutcome) String() string {
	switch o {
	case UpsertInserted:
		return "inserted"
	case UpsertUpdated:
		return "updated"
	case UpsertUnchanged:
		return "unchanged"
	default:
		return "rejected"
	}
}

// ErrNotEvaluated is returned when an attempt without a score or without
// answers is handed to Upsert. Generation-only attempts never persist.
var ErrNotEvaluated = errors.New("quiz attempt has no score or answers")

type QuizAttemptRepo interface {
	Upsert(ctx context.Context, attempt *types.QuizAttempt) (UpsertOutcome, error)
	ListEvaluated(ctx context.Context, username string) ([]*types.QuizAttempt, error)
	DeleteAll(ctx context.Context, username string) (int64, error)
	DeleteOne(ctx context.Context, username, timestamp string) (int64, error)
	PurgeUnevaluated(ctx context.Context, username string) (int64, error)
}

type quizAttemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizAttemptRepo(db *gorm.DB, baseLog *logger.Logger) QuizAttemptRepo {
	return &quizAttemptRepo{db: db, log: baseLog.With("repo", "QuizAttemptRepo")}
}

// Upsert writes an evaluated attempt keyed on (username, timestamp, topic).
// A matching key updates in place; no match inserts. Attempts without a
// score or with empty answers are rejected so the evaluated-only invariant
// holds at the gateway boundary, not just in callers.
func (r *quizAttemptRepo) Upsert(ctx context.Context, attempt *types.QuizAttempt) (UpsertOutcome, error) {
	if !attempt.Evaluated() {
		r.log.Info("Skipping quiz attempt without score/answers",
			"username", attempt.Username,
			"topic", attempt.Topic,
		)
		return UpsertRejected, ErrNotEvaluated
	}

	outcome := UpsertRejected
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing types.QuizAttempt
		err := tx.
			Where("username = ? AND timestamp = ? AND topic = ?",
				attempt.Username, attempt.Timestamp, attempt.Topic).
			First(&existing).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			if cErr := tx.Create(attempt).Error; cErr != nil {
				return cErr
			}
			outcome = UpsertInserted
			return nil
		}
		if err != nil {
			return err
		}

		if attemptPayloadEqual(&existing, attempt) {
			attempt.ID = existing.ID
			outcome = UpsertUnchanged
			return nil
		}

		updated := *attempt
		updated.ID = existing.ID
		updated.CreatedAt = existing.CreatedAt
		if sErr := tx.Save(&updated).Error; sErr != nil {
			return sErr
		}
		attempt.ID = existing.ID
		outcome = UpsertUpdated
		return nil
	})
	if err != nil {
		r.log.Error("Failed to upsert quiz attempt",
			"username", attempt.Username,
			"topic", attempt.Topic,
			"error", err,
		)
		return UpsertRejected, err
	}

	r.log.Info("Saved evaluated quiz attempt",
		"username", attempt.Username,
		"topic", attempt.Topic,
		"outcome", outcome.String(),
		"score", *attempt.Score,
		"total", attempt.Total,
	)
	return outcome, nil
}

// attemptPayloadEqual compares the business payload of two attempts,
// ignoring row identity and bookkeeping timestamps.
func attemptPayloadEqual(a, b *types.QuizAttempt) bool {
	norm := func(x *types.QuizAttempt) []byte {
		clone := *x
		clone.ID = uuid.Nil
		clone.CreatedAt = a.CreatedAt
		clone.UpdatedAt = a.UpdatedAt
		raw, _ := json.Marshal(clone)
		return raw
	}
	return string(norm(a)) == string(norm(b))
}

// ListEvaluated returns the user's evaluated attempts, newest first. On top
// of the SQL filter it re-checks the evaluated invariant and deduplicates by
// (timestamp, topic) in application logic: the unique index was introduced
// after data could already contain duplicates and unevaluated rows.
func (r *quizAttemptRepo) ListEvaluated(ctx context.Context, username string) ([]*types.QuizAttempt, error) {
	var rows []*types.QuizAttempt
	if err := r.db.WithContext(ctx).
		Where("username = ? AND score IS NOT NULL", username).
		Order("timestamp DESC").
		Find(&rows).Error; err != nil {
		r.log.Error("Failed to list quiz history", "username", username, "error", err)
		return nil, err
	}

	seen := make(map[string]struct{}, len(rows))
	unique := make([]*types.QuizAttempt, 0, len(rows))
	for _, row := range rows {
		if !row.Evaluated() {
			continue
		}
		key := row.Timestamp + "_" + row.Topic
		if _, dup := seen[key]; dup {
			r.log.Debug("Filtered out duplicate quiz attempt", "key", key)
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, row)
	}
	return unique, nil
}

func (r *quizAttemptRepo) DeleteAll(ctx context.Context, username string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("username = ?", username).
		Delete(&types.QuizAttempt{})
	if res.Error != nil {
		r.log.Error("Failed to clear quiz history", "username", username, "error", res.Error)
		return 0, res.Error
	}
	r.log.Info("Cleared quiz history", "username", username, "deleted", res.RowsAffected)
	return res.RowsAffected, nil
}

func (r *quizAttemptRepo) DeleteOne(ctx context.Context, username, timestamp string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("username = ? AND timestamp = ?", username, timestamp).
		Delete(&types.QuizAttempt{})
	if res.Error != nil {
		r.log.Error("Failed to delete quiz attempt",
			"username", username, "timestamp", timestamp, "error", res.Error)
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// PurgeUnevaluated removes records written before the evaluated-only
// invariant was enforced at the gateway. The empty-answers check happens in
// application logic so it behaves the same on every SQL backend.
func (r *quizAttemptRepo) PurgeUnevaluated(ctx context.Context, username string) (int64, error) {
	var rows []*types.QuizAttempt
	if err := r.db.WithContext(ctx).
		Where("username = ?", username).
		Find(&rows).Error; err != nil {
		r.log.Error("Failed to load attempts for cleanup", "username", username, "error", err)
		return 0, err
	}

	var ids []uuid.UUID
	for _, row := range rows {
		if !row.Evaluated() {
			ids = append(ids, row.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	res := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&types.QuizAttempt{})
	if res.Error != nil {
		r.log.Error("Failed to purge unevaluated attempts", "username", username, "error", res.Error)
		return 0, res.Error
	}
	r.log.Info("Purged unevaluated quiz attempts", "username", username, "deleted", res.RowsAffected)
	return res.RowsAffected, nil
}
