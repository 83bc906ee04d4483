package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"
	"oshiquiz/internal/domain"
)

const quizSummaryColumns = `
	q.id, q.creator_id, q.title, q.description, q.tag_id, q.difficulty, q.is_public,
	q.play_count, q.average_score, q.created_at, q.updated_at,
	t.id, t.name, t.category, t.description, t.created_at,
	(SELECT count(*) FROM questions qs WHERE qs.quiz_id = q.id)`

func (s *Store) ListTags(ctx context.Context) ([]domain.Tag, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, category, description, created_at FROM tags ORDER BY id`)
	if err != nil {
		return nil, wrap("list tags", err)
	}
	defer rows.Close()
	out := make([]domain.Tag, 0)
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Category, &t.Description, &t.CreatedAt); err != nil {
			return nil, wrap("scan tag", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetTagByName(ctx context.Context, name string) (domain.Tag, error) {
	var t domain.Tag
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, category, description, created_at FROM tags WHERE name = $1`, name,
	).Scan(&t.ID, &t.Name, &t.Category, &t.Description, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Tag{}, domain.ErrTagNotFound
	}
	if err != nil {
		return domain.Tag{}, wrap("get tag", err)
	}
	return t, nil
}

func (s *Store) CreateTag(ctx context.Context, tag *domain.Tag) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO tags (name, category, description) VALUES ($1, $2, $3) RETURNING id, created_at`,
		tag.Name, tag.Category, tag.Description,
	).Scan(&tag.ID, &tag.CreatedAt)
	if pgCode(err) == codeUniqueViolation {
		return domain.ErrTagExists
	}
	if err != nil {
		return wrap("create tag", err)
	}
	return nil
}

// CreateQuiz writes the quiz, its questions and choices in one transaction.
func (s *Store) CreateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO quizzes (creator_id, title, description, tag_id, difficulty, is_public)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at, updated_at`,
			quiz.CreatorID, quiz.Title, quiz.Description, quiz.TagID, string(quiz.Difficulty), quiz.IsPublic,
		).Scan(&quiz.ID, &quiz.CreatedAt, &quiz.UpdatedAt)
		if err != nil {
			return err
		}
		for i := range quiz.Questions {
			q := &quiz.Questions[i]
			q.QuizID = quiz.ID
			err := tx.QueryRow(ctx, `
				INSERT INTO questions (quiz_id, question_text, question_type, order_index, explanation)
				VALUES ($1, $2, $3, $4, $5) RETURNING id`,
				q.QuizID, q.Text, string(q.Type), q.OrderIndex, q.Explanation,
			).Scan(&q.ID)
			if err != nil {
				return err
			}
			for j := range q.Choices {
				c := &q.Choices[j]
				c.QuestionID = q.ID
				err := tx.QueryRow(ctx, `
					INSERT INTO choices (question_id, choice_text, is_correct, order_index)
					VALUES ($1, $2, $3, $4) RETURNING id`,
					c.QuestionID, c.Text, c.IsCorrect, c.OrderIndex,
				).Scan(&c.ID)
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
	if pgCode(err) == codeForeignKeyViolation {
		return domain.ErrTagNotFound
	}
	if err != nil {
		return wrap("create quiz", err)
	}
	quiz.Stats = domain.QuizStats{}
	quiz.QuestionCount = len(quiz.Questions)
	return nil
}

// GetQuiz loads a quiz with its tag, questions and choices in order.
func (s *Store) GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	quiz, err := scanSummary(s.pool.QueryRow(ctx,
		`SELECT `+quizSummaryColumns+` FROM quizzes q JOIN tags t ON t.id = q.tag_id WHERE q.id = $1`, quizID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, wrap("get quiz", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, quiz_id, question_text, question_type, order_index, explanation
		FROM questions WHERE quiz_id = $1 ORDER BY order_index, id`, quizID)
	if err != nil {
		return domain.Quiz{}, wrap("load questions", err)
	}
	quiz.Questions = make([]domain.Question, 0, quiz.QuestionCount)
	index := make(map[int64]int)
	ids := make([]int64, 0, quiz.QuestionCount)
	for rows.Next() {
		var q domain.Question
		var typ string
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &typ, &q.OrderIndex, &q.Explanation); err != nil {
			rows.Close()
			return domain.Quiz{}, wrap("scan question", err)
		}
		q.Type = domain.QuestionType(typ)
		q.Choices = []domain.Choice{}
		index[q.ID] = len(quiz.Questions)
		ids = append(ids, q.ID)
		quiz.Questions = append(quiz.Questions, q)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.Quiz{}, wrap("load questions", err)
	}
	if len(ids) == 0 {
		return quiz, nil
	}

	rows, err = s.pool.Query(ctx, `
		SELECT id, question_id, choice_text, is_correct, order_index
		FROM choices WHERE question_id = ANY($1) ORDER BY question_id, order_index, id`, ids)
	if err != nil {
		return domain.Quiz{}, wrap("load choices", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c domain.Choice
		if err := rows.Scan(&c.ID, &c.QuestionID, &c.Text, &c.IsCorrect, &c.OrderIndex); err != nil {
			return domain.Quiz{}, wrap("scan choice", err)
		}
		i := index[c.QuestionID]
		quiz.Questions[i].Choices = append(quiz.Questions[i].Choices, c)
	}
	if err := rows.Err(); err != nil {
		return domain.Quiz{}, wrap("load choices", err)
	}
	return quiz, nil
}

func (s *Store) ListQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.Quiz, error) {
	where := []string{"q.is_public"}
	var args []any
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("t.category = $%d", len(args)))
	}
	if filter.Difficulty != "" {
		args = append(args, string(filter.Difficulty))
		where = append(where, fmt.Sprintf("q.difficulty = $%d", len(args)))
	}
	if filter.TagID != 0 {
		args = append(args, filter.TagID)
		where = append(where, fmt.Sprintf("q.tag_id = $%d", len(args)))
	}
	query := `SELECT ` + quizSummaryColumns + ` FROM quizzes q JOIN tags t ON t.id = q.tag_id
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY q.created_at DESC, q.id DESC`
	return s.querySummaries(ctx, "list quizzes", query, args...)
}

func (s *Store) PopularQuizzes(ctx context.Context, limit int) ([]domain.Quiz, error) {
	return s.querySummaries(ctx, "popular quizzes", `SELECT `+quizSummaryColumns+`
		FROM quizzes q JOIN tags t ON t.id = q.tag_id
		WHERE q.is_public ORDER BY q.play_count DESC, q.id ASC LIMIT $1`, limit)
}

// DeleteQuiz removes a quiz with its questions and choices. Attempts stay.
func (s *Store) DeleteQuiz(ctx context.Context, quizID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, quizID)
	if err != nil {
		return wrap("delete quiz", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *Store) QuizIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM quizzes ORDER BY id`)
	if err != nil {
		return nil, wrap("quiz ids", err)
	}
	defer rows.Close()
	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, wrap("scan quiz id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) querySummaries(ctx context.Context, op, query string, args ...any) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()
	out := make([]domain.Quiz, 0)
	for rows.Next() {
		q, err := scanSummary(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func scanSummary(row pgx.Row) (domain.Quiz, error) {
	var (
		q          domain.Quiz
		t          domain.Tag
		difficulty string
	)
	err := row.Scan(
		&q.ID, &q.CreatorID, &q.Title, &q.Description, &q.TagID, &difficulty, &q.IsPublic,
		&q.Stats.PlayCount, &q.Stats.AverageScore, &q.CreatedAt, &q.UpdatedAt,
		&t.ID, &t.Name, &t.Category, &t.Description, &t.CreatedAt,
		&q.QuestionCount,
	)
	if err != nil {
		return domain.Quiz{}, err
	}
	q.Difficulty = domain.Difficulty(difficulty)
	q.Tag = &t
	return q, nil
}
