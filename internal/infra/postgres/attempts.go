package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"oshiquiz/internal/domain"
)

// CreateAttempt stores the attempt row and its answers in one transaction.
func (s *Store) CreateAttempt(ctx context.Context, attempt *domain.Attempt) error {
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO quiz_attempts (user_id, quiz_id, score, total_questions, time_taken, rank, completed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			attempt.UserID, attempt.QuizID, attempt.Score, attempt.TotalQuestions,
			attempt.TimeTaken, string(attempt.Rank), attempt.CompletedAt,
		).Scan(&attempt.ID)
		if err != nil {
			return err
		}

		if len(attempt.Answers) == 0 {
			return nil
		}
		batch := &pgx.Batch{}
		for _, a := range attempt.Answers {
			batch.Queue(`
				INSERT INTO user_answers (attempt_id, question_id, selected_choice_id, is_correct)
				VALUES ($1, $2, $3, $4) RETURNING id`,
				attempt.ID, a.QuestionID, a.SelectedChoiceID, a.IsCorrect)
		}
		results := tx.SendBatch(ctx, batch)
		for i := range attempt.Answers {
			if err := results.QueryRow().Scan(&attempt.Answers[i].ID); err != nil {
				results.Close()
				return err
			}
			attempt.Answers[i].AttemptID = attempt.ID
		}
		return results.Close()
	})
	if err != nil {
		return wrap("create attempt", err)
	}
	return nil
}

// TopAttempts returns attempts of a quiz in leaderboard order.
func (s *Store) TopAttempts(ctx context.Context, quizID int64, limit int) ([]domain.Attempt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, quiz_id, score, total_questions, time_taken, rank, completed_at
		FROM quiz_attempts
		WHERE quiz_id = $1
		ORDER BY score DESC, time_taken ASC NULLS LAST, id ASC
		LIMIT $2`, quizID, limit)
	if err != nil {
		return nil, wrap("top attempts", err)
	}
	defer rows.Close()
	out := make([]domain.Attempt, 0)
	for rows.Next() {
		var (
			a         domain.Attempt
			timeTaken sql.NullInt64
			rank      string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.QuizID, &a.Score, &a.TotalQuestions, &timeTaken, &rank, &a.CompletedAt); err != nil {
			return nil, wrap("scan attempt", err)
		}
		if timeTaken.Valid {
			v := int(timeTaken.Int64)
			a.TimeTaken = &v
		}
		a.Rank = domain.Grade(rank)
		out = append(out, a)
	}
	return out, rows.Err()
}

const averageExpr = `(
	SELECT COALESCE(AVG(CASE WHEN total_questions > 0 THEN score * 100.0 / total_questions ELSE 0 END), 0)::float8
	FROM quiz_attempts WHERE quiz_id = $1)`

// RefreshQuizStats bumps play_count and recomputes average_score while
// holding the quiz row lock, so concurrent refreshes apply one at a time.
func (s *Store) RefreshQuizStats(ctx context.Context, quizID int64) (domain.QuizStats, error) {
	return s.updateStats(ctx, quizID, `
		UPDATE quizzes SET play_count = play_count + 1, average_score = `+averageExpr+`, updated_at = now()
		WHERE id = $1 RETURNING play_count, average_score`)
}

// ReconcileQuizStats rebuilds both counters from quiz_attempts.
func (s *Store) ReconcileQuizStats(ctx context.Context, quizID int64) (domain.QuizStats, error) {
	return s.updateStats(ctx, quizID, `
		UPDATE quizzes SET
			play_count = (SELECT count(*) FROM quiz_attempts WHERE quiz_id = $1)::int,
			average_score = `+averageExpr+`
		WHERE id = $1 RETURNING play_count, average_score`)
}

func (s *Store) updateStats(ctx context.Context, quizID int64, update string) (domain.QuizStats, error) {
	var stats domain.QuizStats
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return stats, wrap("update quiz stats", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// lock first so the average below sees every attempt committed before us
	var id int64
	err = tx.QueryRow(ctx, `SELECT id FROM quizzes WHERE id = $1 FOR UPDATE`, quizID).Scan(&id)
	if err == nil {
		err = tx.QueryRow(ctx, update, quizID).Scan(&stats.PlayCount, &stats.AverageScore)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizStats{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.QuizStats{}, wrap("update quiz stats", err)
	}

	if err := tx.Commit(ctx); err != nil {
		if !pgconn.SafeToRetry(err) {
			return domain.QuizStats{}, fmt.Errorf("commit quiz stats: %w: %v", domain.ErrWriteUncertain, err)
		}
		return domain.QuizStats{}, wrap("commit quiz stats", err)
	}
	return stats, nil
}
