package app

import (
	"context"
	"fmt"
	"time"

	"oshiquiz/internal/domain"
)

// AttemptStore persists attempts. CreateAttempt writes the attempt and all
// of its answers atomically and fills in their IDs.
type AttemptStore interface {
	CreateAttempt(ctx context.Context, attempt *domain.Attempt) error
	// TopAttempts returns at most limit attempts of a quiz in leaderboard order.
	TopAttempts(ctx context.Context, quizID int64, limit int) ([]domain.Attempt, error)
}

// AttemptRecorder turns a grading pass into a durable attempt record.
type AttemptRecorder struct {
	store AttemptStore
	now   func() time.Time
}

func NewAttemptRecorder(store AttemptStore) *AttemptRecorder {
	return &AttemptRecorder{store: store, now: time.Now}
}

// Record stores the graded submission. Each answer keeps the correctness
// computed at grading time.
func (r *AttemptRecorder) Record(ctx context.Context, userID, quizID int64, graded GradeResult, timeTaken *int) (domain.Attempt, error) {
	attempt := domain.Attempt{
		UserID:         userID,
		QuizID:         quizID,
		Score:          graded.Score,
		TotalQuestions: graded.Total,
		TimeTaken:      timeTaken,
		Rank:           graded.Grade,
		CompletedAt:    r.now().UTC(),
		Answers:        make([]domain.Answer, 0, len(graded.Answers)),
	}
	for _, a := range graded.Answers {
		attempt.Answers = append(attempt.Answers, domain.Answer{
			QuestionID:       a.QuestionID,
			SelectedChoiceID: a.SelectedChoiceID,
			IsCorrect:        a.IsCorrect,
		})
	}

	if err := r.store.CreateAttempt(ctx, &attempt); err != nil {
		return domain.Attempt{}, fmt.Errorf("record attempt: %w", err)
	}
	return attempt, nil
}
