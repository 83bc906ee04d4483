package app

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"oshiquiz/internal/domain"
)

// StatsStore persists the quiz counters. RefreshQuizStats must increment
// play_count and recompute average_score from every attempt of the quiz in a
// single transaction, so both fields change together or not at all.
type StatsStore interface {
	RefreshQuizStats(ctx context.Context, quizID int64) (domain.QuizStats, error)
	// ReconcileQuizStats sets play_count to the number of attempts and
	// recomputes average_score.
	ReconcileQuizStats(ctx context.Context, quizID int64) (domain.QuizStats, error)
	QuizIDs(ctx context.Context) ([]int64, error)
}

// StatsAggregator serializes counter updates per quiz and retries failed
// refreshes independently of the attempt write.
type StatsAggregator struct {
	store      StatsStore
	locks      *keyedMutex
	maxElapsed time.Duration
}

func NewStatsAggregator(store StatsStore, maxElapsed time.Duration) *StatsAggregator {
	if maxElapsed <= 0 {
		maxElapsed = 2 * time.Second
	}
	return &StatsAggregator{store: store, locks: newKeyedMutex(), maxElapsed: maxElapsed}
}

// Refresh counts one more play for the quiz and recomputes its average.
func (a *StatsAggregator) Refresh(ctx context.Context, quizID int64) (domain.QuizStats, error) {
	unlock := a.locks.Lock(quizID)
	defer unlock()

	attempt := 0
	return backoff.RetryWithData(func() (domain.QuizStats, error) {
		attempt++
		stats, err := a.store.RefreshQuizStats(ctx, quizID)
		if err == nil {
			return stats, nil
		}
		// a commit that may have landed is never repeated
		if errors.Is(err, domain.ErrQuizNotFound) || errors.Is(err, domain.ErrWriteUncertain) {
			return stats, backoff.Permanent(err)
		}
		log.Warn().Err(err).Int64("quiz_id", quizID).Int("try", attempt).Msg("stats refresh failed")
		return stats, err
	}, a.policy(ctx))
}

// Reconcile rebuilds counters for one quiz, or all quizzes when quizID is 0.
func (a *StatsAggregator) Reconcile(ctx context.Context, quizID int64) (map[int64]domain.QuizStats, error) {
	ids := []int64{quizID}
	if quizID == 0 {
		var err error
		if ids, err = a.store.QuizIDs(ctx); err != nil {
			return nil, err
		}
	}

	out := make(map[int64]domain.QuizStats, len(ids))
	for _, id := range ids {
		unlock := a.locks.Lock(id)
		stats, err := a.store.ReconcileQuizStats(ctx, id)
		unlock()
		if err != nil {
			return out, err
		}
		out[id] = stats
	}
	return out, nil
}

func (a *StatsAggregator) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 25 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.MaxElapsedTime = a.maxElapsed
	return backoff.WithContext(b, ctx)
}
