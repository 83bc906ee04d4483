package app

import "oshiquiz/internal/domain"

// AnswerKey indexes a quiz's questions and choices so each submitted answer
// resolves in constant time.
type AnswerKey struct {
	QuizID    int64
	questions map[int64]*keyedQuestion
}

type keyedQuestion struct {
	question domain.Question
	choices  map[int64]domain.Choice
	// correct is nil when the question has zero or several choices marked correct.
	correct *domain.Choice
}

// NewAnswerKey builds the key for a quiz's content.
func NewAnswerKey(quiz domain.Quiz) *AnswerKey {
	key := &AnswerKey{
		QuizID:    quiz.ID,
		questions: make(map[int64]*keyedQuestion, len(quiz.Questions)),
	}
	for _, q := range quiz.Questions {
		kq := &keyedQuestion{
			question: q,
			choices:  make(map[int64]domain.Choice, len(q.Choices)),
		}
		marked := 0
		for i := range q.Choices {
			c := q.Choices[i]
			kq.choices[c.ID] = c
			if c.IsCorrect {
				marked++
				kq.correct = &q.Choices[i]
			}
		}
		if marked != 1 {
			kq.correct = nil
		}
		key.questions[q.ID] = kq
	}
	return key
}

// GradedAnswer is one submitted answer after grading, carrying the content
// needed to explain the result. Text fields are nil when the referenced
// question or choice does not exist.
type GradedAnswer struct {
	QuestionID         int64   `json:"question_id"`
	QuestionText       *string `json:"question_text"`
	SelectedChoiceID   *int64  `json:"selected_choice_id"`
	SelectedChoiceText *string `json:"selected_choice_text"`
	CorrectChoiceID    *int64  `json:"correct_choice_id"`
	CorrectChoiceText  *string `json:"correct_choice_text"`
	IsCorrect          bool    `json:"is_correct"`
	Explanation        *string `json:"explanation"`
}

// GradeResult is the outcome of grading one submission.
type GradeResult struct {
	Answers []GradedAnswer
	Score   int
	Total   int
	Grade   domain.Grade
}

// Percentage returns the unrounded percentage of correct answers.
func (r GradeResult) Percentage() float64 {
	return Percentage(r.Score, r.Total)
}

// GradeSubmission scores answers against the key. Unknown questions, unknown
// choices, choices of another question and malformed keys all grade as
// incorrect; grading never fails.
func GradeSubmission(key *AnswerKey, answers []domain.AnswerSubmission) GradeResult {
	result := GradeResult{
		Answers: make([]GradedAnswer, 0, len(answers)),
		Total:   len(answers),
	}
	for _, submitted := range answers {
		graded := gradeOne(key, submitted)
		if graded.IsCorrect {
			result.Score++
		}
		result.Answers = append(result.Answers, graded)
	}
	result.Grade = GradeFor(result.Percentage())
	return result
}

func gradeOne(key *AnswerKey, submitted domain.AnswerSubmission) GradedAnswer {
	graded := GradedAnswer{
		QuestionID:       submitted.QuestionID,
		SelectedChoiceID: submitted.SelectedChoiceID,
	}
	if key == nil {
		return graded
	}
	kq, ok := key.questions[submitted.QuestionID]
	if !ok {
		return graded
	}

	graded.QuestionText = strPtr(kq.question.Text)
	graded.Explanation = strPtr(kq.question.Explanation)
	if kq.correct != nil {
		graded.CorrectChoiceID = int64Ptr(kq.correct.ID)
		graded.CorrectChoiceText = strPtr(kq.correct.Text)
	}
	if submitted.SelectedChoiceID == nil {
		return graded
	}
	selected, ok := kq.choices[*submitted.SelectedChoiceID]
	if !ok {
		return graded
	}
	graded.SelectedChoiceText = strPtr(selected.Text)
	graded.IsCorrect = kq.correct != nil && selected.ID == kq.correct.ID
	return graded
}

// Percentage is score/total*100, or 0 for an empty submission. The numerator
// is scaled before dividing so exact thresholds such as 90 compare exactly.
func Percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(score*100) / float64(total)
}

// RoundedPercentage is Percentage rounded half-up to one decimal place,
// computed in integer tenths.
func RoundedPercentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	tenths := (score*2000 + total) / (2 * total)
	return float64(tenths) / 10
}

// GradeFor maps a percentage to its letter grade.
func GradeFor(percentage float64) domain.Grade {
	switch {
	case percentage >= 90:
		return domain.GradeS
	case percentage >= 75:
		return domain.GradeA
	case percentage >= 60:
		return domain.GradeB
	case percentage >= 40:
		return domain.GradeC
	default:
		return domain.GradeD
	}
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }
