package domain

import "time"

// Difficulty is the authored difficulty level of a quiz.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
	DifficultyMania        Difficulty = "mania"
)

// Valid reports whether d is one of the known difficulty levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced, DifficultyMania:
		return true
	}
	return false
}

// QuestionType tags how a question is presented.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
)

// Grade is the letter bucket derived from an attempt percentage.
type Grade string

const (
	GradeS Grade = "S"
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
)

// Tag groups quizzes under a subject (a series, a group, a streamer...).
type Tag struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// User is the identity record used to resolve display names.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Choice is one selectable answer of a question.
type Choice struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"choice_text"`
	IsCorrect  bool   `json:"is_correct"`
	OrderIndex int    `json:"order_index"`
}

// Question belongs to one quiz; Choices are kept sorted by OrderIndex.
type Question struct {
	ID          int64        `json:"id"`
	QuizID      int64        `json:"quiz_id"`
	Text        string       `json:"question_text"`
	Type        QuestionType `json:"question_type"`
	OrderIndex  int          `json:"order_index"`
	Explanation string       `json:"explanation"`
	Choices     []Choice     `json:"choices"`
}

// QuizStats are the running counters maintained after every attempt.
type QuizStats struct {
	PlayCount    int     `json:"play_count"`
	AverageScore float64 `json:"average_score"`
}

// Quiz is a collection of questions ordered by OrderIndex.
type Quiz struct {
	ID          int64      `json:"id"`
	CreatorID   int64      `json:"creator_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	TagID       int64      `json:"tag_id"`
	Tag         *Tag       `json:"tag,omitempty"`
	Difficulty  Difficulty `json:"difficulty"`
	IsPublic    bool       `json:"is_public"`
	Stats       QuizStats  `json:"stats"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	// QuestionCount is filled by listings that do not load Questions.
	QuestionCount int        `json:"question_count"`
	Questions     []Question `json:"questions,omitempty"`
}

// QuizFilter narrows public quiz listings. Zero values mean "any".
type QuizFilter struct {
	Category   string
	Difficulty Difficulty
	TagID      int64
}

// Answer is the stored outcome of one submitted answer. IsCorrect is fixed at
// grading time and never re-derived.
type Answer struct {
	ID               int64  `json:"id"`
	AttemptID        int64  `json:"attempt_id"`
	QuestionID       int64  `json:"question_id"`
	SelectedChoiceID *int64 `json:"selected_choice_id"`
	IsCorrect        bool   `json:"is_correct"`
}

// Attempt is one completed, immutable submission.
type Attempt struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	QuizID         int64     `json:"quiz_id"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	TimeTaken      *int      `json:"time_taken"`
	Rank           Grade     `json:"rank"`
	CompletedAt    time.Time `json:"completed_at"`
	Answers        []Answer  `json:"answers,omitempty"`
}

// AnswerSubmission is one client answer; SelectedChoiceID is nil when the
// question was left unanswered.
type AnswerSubmission struct {
	QuestionID       int64
	SelectedChoiceID *int64
}

// Submission is a full set of answers for one quiz.
type Submission struct {
	UserID    int64
	TimeTaken *int
	Answers   []AnswerSubmission
}

// Outranks reports whether a sorts before b on a quiz leaderboard: higher
// score first, then faster time with unrecorded times last, then lower id.
func Outranks(a, b Attempt) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	switch {
	case a.TimeTaken != nil && b.TimeTaken == nil:
		return true
	case a.TimeTaken == nil && b.TimeTaken != nil:
		return false
	case a.TimeTaken != nil && b.TimeTaken != nil && *a.TimeTaken != *b.TimeTaken:
		return *a.TimeTaken < *b.TimeTaken
	}
	return a.ID < b.ID
}
