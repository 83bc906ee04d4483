package http

import (
	"time"

	"oshiquiz/internal/app"
	"oshiquiz/internal/domain"
)

type answerRequest struct {
	QuestionID       int64  `json:"question_id"`
	SelectedChoiceID *int64 `json:"selected_choice_id"`
}

type submitRequest struct {
	UserID    *int64          `json:"user_id" validate:"omitempty,gt=0"`
	TimeTaken *int            `json:"time_taken" validate:"omitempty,gte=0"`
	Answers   []answerRequest `json:"answers" validate:"dive"`
}

type choiceRequest struct {
	Text       string `json:"choice_text" validate:"required"`
	IsCorrect  bool   `json:"is_correct"`
	OrderIndex int    `json:"order_index" validate:"gte=0"`
}

type questionRequest struct {
	Text        string          `json:"question_text" validate:"required"`
	Type        string          `json:"question_type" validate:"omitempty,oneof=multiple_choice true_false"`
	OrderIndex  int             `json:"order_index" validate:"gte=0"`
	Explanation string          `json:"explanation"`
	Choices     []choiceRequest `json:"choices" validate:"min=2,dive"`
}

type quizRequest struct {
	CreatorID   int64             `json:"creator_id" validate:"gte=0"`
	Title       string            `json:"title" validate:"required,max=200"`
	Description string            `json:"description"`
	TagID       int64             `json:"tag_id" validate:"required,gt=0"`
	Difficulty  string            `json:"difficulty" validate:"required,oneof=beginner intermediate advanced mania"`
	IsPublic    *bool             `json:"is_public"`
	Questions   []questionRequest `json:"questions" validate:"dive"`
}

type tagRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Category    string `json:"category" validate:"required,oneof=anime manga idol vtuber other"`
	Description string `json:"description"`
}

type userRequest struct {
	Username string `json:"username" validate:"required,max=80"`
}

// toQuiz fills unset order indexes with the position in the request.
func (r quizRequest) toQuiz() domain.Quiz {
	quiz := domain.Quiz{
		CreatorID:   r.CreatorID,
		Title:       r.Title,
		Description: r.Description,
		TagID:       r.TagID,
		Difficulty:  domain.Difficulty(r.Difficulty),
		IsPublic:    r.IsPublic == nil || *r.IsPublic,
		Questions:   make([]domain.Question, 0, len(r.Questions)),
	}
	for i, q := range r.Questions {
		question := domain.Question{
			Text:        q.Text,
			Type:        domain.QuestionType(q.Type),
			OrderIndex:  q.OrderIndex,
			Explanation: q.Explanation,
			Choices:     make([]domain.Choice, 0, len(q.Choices)),
		}
		if question.Type == "" {
			question.Type = domain.QuestionMultipleChoice
		}
		if question.OrderIndex == 0 {
			question.OrderIndex = i + 1
		}
		for j, c := range q.Choices {
			order := c.OrderIndex
			if order == 0 {
				order = j + 1
			}
			question.Choices = append(question.Choices, domain.Choice{Text: c.Text, IsCorrect: c.IsCorrect, OrderIndex: order})
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	return quiz
}

type attemptResponse struct {
	ID             int64              `json:"id"`
	UserID         int64              `json:"user_id"`
	QuizID         int64              `json:"quiz_id"`
	Score          int                `json:"score"`
	TotalQuestions int                `json:"total_questions"`
	Percentage     float64            `json:"percentage"`
	TimeTaken      *int               `json:"time_taken"`
	Rank           domain.Grade       `json:"rank"`
	CompletedAt    time.Time          `json:"completed_at"`
	Answers        []app.GradedAnswer `json:"answers"`
}

func newAttemptResponse(res app.AttemptResult) attemptResponse {
	a := res.Attempt
	answers := res.Answers
	if answers == nil {
		answers = []app.GradedAnswer{}
	}
	return attemptResponse{
		ID:             a.ID,
		UserID:         a.UserID,
		QuizID:         a.QuizID,
		Score:          a.Score,
		TotalQuestions: a.TotalQuestions,
		Percentage:     app.RoundedPercentage(a.Score, a.TotalQuestions),
		TimeTaken:      a.TimeTaken,
		Rank:           a.Rank,
		CompletedAt:    a.CompletedAt,
		Answers:        answers,
	}
}

type tagSummary struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type quizSummary struct {
	ID            int64             `json:"id"`
	CreatorID     int64             `json:"creator_id"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Tag           *tagSummary       `json:"tag"`
	Difficulty    domain.Difficulty `json:"difficulty"`
	IsPublic      bool              `json:"is_public"`
	PlayCount     int               `json:"play_count"`
	AverageScore  float64           `json:"average_score"`
	CreatedAt     time.Time         `json:"created_at"`
	QuestionCount int               `json:"question_count"`
}

func newQuizSummary(q domain.Quiz) quizSummary {
	s := quizSummary{
		ID:            q.ID,
		CreatorID:     q.CreatorID,
		Title:         q.Title,
		Description:   q.Description,
		Difficulty:    q.Difficulty,
		IsPublic:      q.IsPublic,
		PlayCount:     q.Stats.PlayCount,
		AverageScore:  q.Stats.AverageScore,
		CreatedAt:     q.CreatedAt,
		QuestionCount: q.QuestionCount,
	}
	if q.Tag != nil {
		s.Tag = &tagSummary{ID: q.Tag.ID, Name: q.Tag.Name, Category: q.Tag.Category}
	}
	return s
}

func newQuizSummaries(quizzes []domain.Quiz) []quizSummary {
	out := make([]quizSummary, 0, len(quizzes))
	for _, q := range quizzes {
		out = append(out, newQuizSummary(q))
	}
	return out
}

// choiceView and questionView never expose is_correct.
type choiceView struct {
	ID         int64  `json:"id"`
	Text       string `json:"choice_text"`
	OrderIndex int    `json:"order_index"`
}

type questionView struct {
	ID         int64               `json:"id"`
	Text       string              `json:"question_text"`
	Type       domain.QuestionType `json:"question_type"`
	OrderIndex int                 `json:"order_index"`
	Choices    []choiceView        `json:"choices"`
}

type quizView struct {
	quizSummary
	Questions []questionView `json:"questions"`
}

func newQuizView(q domain.Quiz) quizView {
	v := quizView{quizSummary: newQuizSummary(q), Questions: make([]questionView, 0, len(q.Questions))}
	v.QuestionCount = len(q.Questions)
	for _, question := range q.Questions {
		qv := questionView{
			ID:         question.ID,
			Text:       question.Text,
			Type:       question.Type,
			OrderIndex: question.OrderIndex,
			Choices:    make([]choiceView, 0, len(question.Choices)),
		}
		for _, c := range question.Choices {
			qv.Choices = append(qv.Choices, choiceView{ID: c.ID, Text: c.Text, OrderIndex: c.OrderIndex})
		}
		v.Questions = append(v.Questions, qv)
	}
	return v
}
