package repos

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/quizforge/quizforge-backend/internal/logger"
	"github.com/quizforge/quizforge-backend/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&types.User{}, &types.QuizAttempt{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func evaluatedAttempt(username, timestamp, topic string, score int) *types.QuizAttempt {
	s := score
	return &types.QuizAttempt{
		Username:  username,
		Timestamp: timestamp,
		Topic:     topic,
		Subtopics: []string{"Basics"},
		Score:     &s,
		Total:     2,
		Answers:   []string{"A", "B"},
		Questions: []types.Question{
			{Question: "Q1?", Options: []string{"A) 1", "B) 2", "C) 3", "D) 4"}, Answer: "A"},
			{Question: "Q2?", Options: []string{"A) 1", "B) 2", "C) 3", "D) 4"}, Answer: "B"},
		},
	}
}

func attemptCount(t *testing.T, db *gorm.DB, username string) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&types.QuizAttempt{}).Where("username = ?", username).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return count
}

// ---------------- UserRepo ----------------

func TestUserRepoCreateAndFind(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepo(db, newTestLogger(t))
	ctx := context.Background()

	if err := repo.Create(ctx, &types.User{Username: "alice", Password: "secret"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	byName, err := repo.Find(ctx, "alice", "")
	if err != nil || byName == nil {
		t.Fatalf("Find by username: user=%v err=%v", byName, err)
	}

	byCreds, err := repo.Find(ctx, "alice", "secret")
	if err != nil || byCreds == nil {
		t.Fatalf("Find by credentials: user=%v err=%v", byCreds, err)
	}

	wrongPass, err := repo.Find(ctx, "alice", "nope")
	if err != nil || wrongPass != nil {
		t.Fatalf("Find with wrong password: user=%v err=%v", wrongPass, err)
	}

	missing, err := repo.Find(ctx, "bob", "")
	if err != nil || missing != nil {
		t.Fatalf("Find missing user: user=%v err=%v", missing, err)
	}
}

func TestUserRepoDuplicateUsernameRejected(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepo(db, newTestLogger(t))
	ctx := context.Background()

	if err := repo.Create(ctx, &types.User{Username: "alice", Password: "one"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, &types.User{Username: "alice", Password: "two"}); err == nil {
		t.Fatalf("duplicate username accepted")
	}
}

// ---------------- QuizAttemptRepo ----------------

func TestUpsertRejectsUnevaluatedAttempt(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuizAttemptRepo(db, newTestLogger(t))
	ctx := context.Background()

	noScore := evaluatedAttempt("alice", "2026-08-30 10:00:00", "Go", 1)
	noScore.Score = nil
	outcome, err := repo.Upsert(ctx, noScore)
	if outcome != UpsertRejected || err != ErrNotEvaluated {
		t.Fatalf("nil score: outcome=%v err=%v", outcome, err)
	}

	noAnswers := evaluatedAttempt("alice", "2026-08-30 10:00:00", "Go", 1)
	noAnswers.Answers = nil
	outcome, err = repo.Upsert(ctx, noAnswers)
	if outcome != UpsertRejected || err != ErrNotEvaluated {
		t.Fatalf("empty answers: outcome=%v err=%v", outcome, err)
	}

	if got := attemptCount(t, db, "alice"); got != 0 {
		t.Fatalf("record count after rejected upserts: want=0 got=%d", got)
	}
}

func TestUpsertInsertUpdateUnchanged(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuizAttemptRepo(db, newTestLogger(t))
	ctx := context.Background()

	first := evaluatedAttempt("alice", "2026-08-30 10:00:00", "Go", 1)
	outcome, err := repo.Upsert(ctx, first)
	if err != nil || outcome != UpsertInserted {
		t.Fatalf("first upsert: outcome=%v err=%v", outcome, err)
	}

	// Same business key, different score: overwrite, not duplicate.
	second := evaluatedAttempt("alice", "2026-08-30 10:00:00", "Go", 2)
	outcome, err = repo.Upsert(ctx, second)
	if err != nil || outcome != UpsertUpdated {
		t.Fatalf("second upsert: outcome=%v err=%v", outcome, err)
	}
	if got := attemptCount(t, db, "alice"); got != 1 {
		t.Fatalf("record count: want=1 got=%d", got)
	}

	var stored types.QuizAttempt
	if err := db.Where("username = ?", "alice").First(&stored).Error; err != nil {
		t.Fatalf("load stored: %v", err)
	}
	if stored.Score == nil || *stored.Score != 2 {
		t.Fatalf("stored score: want=2 got=%v", stored.Score)
	}

	third := evaluatedAttempt("alice", "2026-08-30 10:00:00", "Go", 2)
	outcome, err = repo.Upsert(ctx, third)
	if err != nil || outcome != UpsertUnchanged {
		t.Fatalf("identical upsert: outcome=%v err=%v", outcome, err)
	}
	if got := attemptCount(t, db, "alice"); got != 1 {
		t.Fatalf("record count after unchanged upsert: want=1 got=%d", got)
	}
}

func TestUpsertDistinctKeysInsertSeparately(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuizAttemptRepo(db, newTestLogger(t))
	ctx := context.Background()

	for _, a := range []*types.QuizAttempt{
		evaluatedAttempt("alice", "2026-08-30 10:00:00", "Go", 1),
		evaluatedAttempt("alice", "2026-08-30 10:00:01", "Go", 1),
		evaluatedAttempt("alice", "2026-08-30 10:00:00", "Rust", 1),
	} {
		if outcome, err := repo.Upsert(ctx, a); err != nil || outcome != UpsertInserted {
			t.Fatalf("upsert %s/%s: outcome=%v err=%v", a.Timestamp, a.Topic, outcome, err)
		}
	}
	if got := attemptCount(t, db, "alice"); got != 3 {
		t.Fatalf("record count: want=3 got=%d", got)
	}
}

func TestListEvaluatedFiltersAndOrders(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuizAttemptRepo(db, newTestLogger(t))
	ctx := context.Background()

	mustUpsert := func(a *types.QuizAttempt) {
		t.Helper()
		if _, err := repo.Upsert(ctx, a); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	mustUpsert(evaluatedAttempt("alice", "2026-08-30 09:00:00", "Go", 1))
	mustUpsert(evaluatedAttempt("alice", "2026-08-30 11:00:00", "Go", 2))
	mustUpsert(evaluatedAttempt("alice", "2026-08-30 10:00:00", "Rust", 1))
	mustUpsert(evaluatedAttempt("bob", "2026-08-30 12:00:00", "Go", 1))

	// Rows written before the gateway enforced the invariant: no score, or
	// a score but no answers. Inserted behind the gateway's back.
	legacyNoScore := evaluatedAttempt("alice", "2026-08-30 08:00:00", "Go", 1)
	legacyNoScore.Score = nil
	if err := db.Create(legacyNoScore).Error; err != nil {
		t.Fatalf("create legacy row: %v", err)
	}
	legacyNoAnswers := evaluatedAttempt("alice", "2026-08-30 07:00:00", "Go", 1)
	legacyNoAnswers.Answers = []string{}
	if err := db.Create(legacyNoAnswers).Error; err != nil {
		t.Fatalf("create legacy row: %v", err)
	}

	records, err := repo.ListEvaluated(ctx, "alice")
	if err != nil {
		t.Fatalf("ListEvaluated: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("record count: want=3 got=%d", len(records))
	}
	for _, r := range records {
		if !r.Evaluated() {
			t.Fatalf("unevaluated record leaked: %+v", r)
		}
		if r.Username != "alice" {
			t.Fatalf("foreign record leaked: %+v", r)
		}
	}
	if records[0].Timestamp != "2026-08-30 11:00:00" || records[2].Timestamp != "2026-08-30 09:00:00" {
		t.Fatalf("records not ordered newest first: %v, %v, %v",
			records[0].Timestamp, records[1].Timestamp, records[2].Timestamp)
	}
}

func TestListEvaluatedDeduplicatesLegacyRows(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuizAttemptRepo(db, newTestLogger(t))
	ctx := context.Background()

	// Duplicates predate the unique index; drop it to recreate that state.
	if err := db.Migrator().DropIndex(&types.QuizAttempt{}, "idx_quiz_attempt_key"); err != nil {
		t.Fatalf("drop index: %v", err)
	}

	one := evaluatedAttempt("alice", "2026-08-30 10:00:00", "Go", 1)
	two := evaluatedAttempt("alice", "2026-08-30 10:00:00", "Go", 2)
	if err := db.Create(one).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := db.Create(two).Error; err != nil {
		t.Fatalf("create duplicate: %v", err)
	}

	records, err := repo.ListEvaluated(ctx, "alice")
	if err != nil {
		t.Fatalf("ListEvaluated: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("deduplicated count: want=1 got=%d", len(records))
	}
}

func TestDeleteAllAndDeleteOne(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuizAttemptRepo(db, newTestLogger(t))
	ctx := context.Background()

	for _, a := range []*types.QuizAttempt{
		evaluatedAttempt("alice", "2026-08-30 10:00:00", "Go", 1),
		evaluatedAttempt("alice", "2026-08-30 11:00:00", "Go", 1),
		evaluatedAttempt("bob", "2026-08-30 10:00:00", "Go", 1),
	} {
		if _, err := repo.Upsert(ctx, a); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	deleted, err := repo.DeleteOne(ctx, "alice", "2026-08-30 10:00:00")
	if err != nil || deleted != 1 {
		t.Fatalf("DeleteOne: deleted=%d err=%v", deleted, err)
	}

	deleted, err = repo.DeleteOne(ctx, "alice", "2000-01-01 00:00:00")
	if err != nil || deleted != 0 {
		t.Fatalf("DeleteOne no match: deleted=%d err=%v", deleted, err)
	}

	deleted, err = repo.DeleteAll(ctx, "alice")
	if err != nil || deleted != 1 {
		t.Fatalf("DeleteAll: deleted=%d err=%v", deleted, err)
	}

	if got := attemptCount(t, db, "bob"); got != 1 {
		t.Fatalf("other user's record removed: count=%d", got)
	}

	deleted, err = repo.DeleteAll(ctx, "alice")
	if err != nil || deleted != 0 {
		t.Fatalf("DeleteAll on empty: deleted=%d err=%v", deleted, err)
	}
}

func TestPurgeUnevaluated(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuizAttemptRepo(db, newTestLogger(t))
	ctx := context.Background()

	if _, err := repo.Upsert(ctx, evaluatedAttempt("alice", "2026-08-30 10:00:00", "Go", 1)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	noScore := evaluatedAttempt("alice", "2026-08-30 09:00:00", "Go", 1)
	noScore.Score = nil
	noAnswers := evaluatedAttempt("alice", "2026-08-30 08:00:00", "Go", 1)
	noAnswers.Answers = []string{}
	for _, legacy := range []*types.QuizAttempt{noScore, noAnswers} {
		if err := db.Create(legacy).Error; err != nil {
			t.Fatalf("create legacy row: %v", err)
		}
	}

	purged, err := repo.PurgeUnevaluated(ctx, "alice")
	if err != nil || purged != 2 {
		t.Fatalf("PurgeUnevaluated: purged=%d err=%v", purged, err)
	}
	if got := attemptCount(t, db, "alice"); got != 1 {
		t.Fatalf("remaining count: want=1 got=%d", got)
	}

	purged, err = repo.PurgeUnevaluated(ctx, "alice")
	if err != nil || purged != 0 {
		t.Fatalf("second purge: purged=%d err=%v", purged, err)
	}
}
