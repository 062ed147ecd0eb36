package services

import (
	"context"

	"github.com/quizforge/quizforge-backend/internal/logger"
	"github.com/quizforge/quizforge-backend/internal/repos"
	"github.com/quizforge/quizforge-backend/internal/types"
)

// HistoryService fronts the quiz attempt gateway for the handlers. Storage
// errors are logged here and flattened to benign empty/zero results, which
// keeps the HTTP contract of the original service: callers always get
// something usable back.
type HistoryService interface {
	SaveEvaluated(ctx context.Context, attempt *types.QuizAttempt)
	List(ctx context.Context, username string) []*types.QuizAttempt
	ClearAll(ctx context.Context, username string) int64
	DeleteOne(ctx context.Context, username, timestamp string) int64
	CleanupUnevaluated(ctx context.Context, username string) int64
}

type historyService struct {
	log         *logger.Logger
	attemptRepo repos.QuizAttemptRepo
}

func NewHistoryService(log *logger.Logger, attemptRepo repos.QuizAttemptRepo) HistoryService {
	return &historyService{
		log:         log.With("service", "HistoryService"),
		attemptRepo: attemptRepo,
	}
}

func (hs *historyService) SaveEvaluated(ctx context.Context, attempt *types.QuizAttempt) {
	if _, err := hs.attemptRepo.Upsert(ctx, attempt); err != nil {
		hs.log.Error("Failed to save quiz attempt",
			"username", attempt.Username, "topic", attempt.Topic, "error", err)
	}
}

func (hs *historyService) List(ctx context.Context, username string) []*types.QuizAttempt {
	records, err := hs.attemptRepo.ListEvaluated(ctx, username)
	if err != nil {
		hs.log.Error("Failed to fetch quiz history", "username", username, "error", err)
		return []*types.QuizAttempt{}
	}
	return records
}

func (hs *historyService) ClearAll(ctx context.Context, username string) int64 {
	count, err := hs.attemptRepo.DeleteAll(ctx, username)
	if err != nil {
		return 0
	}
	return count
}

func (hs *historyService) DeleteOne(ctx context.Context, username, timestamp string) int64 {
	count, err := hs.attemptRepo.DeleteOne(ctx, username, timestamp)
	if err != nil {
		return 0
	}
	return count
}

func (hs *historyService) CleanupUnevaluated(ctx context.Context, username string) int64 {
	count, err := hs.attemptRepo.PurgeUnevaluated(ctx, username)
	if err != nil {
		return 0
	}
	return count
}
