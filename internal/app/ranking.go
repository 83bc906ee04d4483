package app

import (
	"context"
	"sort"

	"oshiquiz/internal/domain"
)

// UnknownPlayer is shown when an attempt's user record is missing.
const UnknownPlayer = "Unknown"

// UserDirectory resolves identities for display.
type UserDirectory interface {
	GetUser(ctx context.Context, userID int64) (domain.User, error)
	// LookupUsers returns the users that exist among ids; missing ids are absent.
	LookupUsers(ctx context.Context, ids []int64) (map[int64]domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
}

// PopularityStore lists public quizzes by play count.
type PopularityStore interface {
	PopularQuizzes(ctx context.Context, limit int) ([]domain.Quiz, error)
}

// RankingRow is one leaderboard line.
type RankingRow struct {
	Rank           int          `json:"rank"`
	AttemptID      int64        `json:"attempt_id"`
	PlayerName     string       `json:"player_name"`
	Score          int          `json:"score"`
	TotalQuestions int          `json:"total_questions"`
	Percentage     float64      `json:"percentage"`
	TimeTaken      *int         `json:"time_taken"`
	RankGrade      domain.Grade `json:"rank_grade"`
}

// QuizLeaderboard is the ranked list of attempts for a quiz.
type QuizLeaderboard struct {
	QuizID    int64        `json:"quiz_id"`
	QuizTitle string       `json:"quiz_title"`
	Rankings  []RankingRow `json:"rankings"`
}

// Limits bounds leaderboard sizes.
type Limits struct {
	Rankings int
	Popular  int
	Max      int
}

func (l Limits) withDefaults() Limits {
	if l.Rankings <= 0 {
		l.Rankings = 100
	}
	if l.Popular <= 0 {
		l.Popular = 10
	}
	if l.Max <= 0 {
		l.Max = 100
	}
	return l
}

// RankingService builds read-only leaderboards.
type RankingService struct {
	catalog  Catalog
	attempts AttemptStore
	popular  PopularityStore
	users    UserDirectory
	limits   Limits
}

func NewRankingService(catalog Catalog, attempts AttemptStore, popular PopularityStore, users UserDirectory, limits Limits) *RankingService {
	return &RankingService{
		catalog:  catalog,
		attempts: attempts,
		popular:  popular,
		users:    users,
		limits:   limits.withDefaults(),
	}
}

// QuizRankings returns the leaderboard of one quiz. limit <= 0 selects the
// default size.
func (s *RankingService) QuizRankings(ctx context.Context, quizID int64, limit int) (QuizLeaderboard, error) {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return QuizLeaderboard{}, err
	}
	limit = s.clamp(limit, s.limits.Rankings)

	attempts, err := s.attempts.TopAttempts(ctx, quizID, limit)
	if err != nil {
		return QuizLeaderboard{}, err
	}
	sort.SliceStable(attempts, func(i, j int) bool { return domain.Outranks(attempts[i], attempts[j]) })
	if len(attempts) > limit {
		attempts = attempts[:limit]
	}

	names, err := s.displayNames(ctx, attempts)
	if err != nil {
		return QuizLeaderboard{}, err
	}

	rows := make([]RankingRow, 0, len(attempts))
	for i, a := range attempts {
		name, ok := names[a.UserID]
		if !ok {
			name = UnknownPlayer
		}
		rows = append(rows, RankingRow{
			Rank:           i + 1,
			AttemptID:      a.ID,
			PlayerName:     name,
			Score:          a.Score,
			TotalQuestions: a.TotalQuestions,
			Percentage:     RoundedPercentage(a.Score, a.TotalQuestions),
			TimeTaken:      a.TimeTaken,
			RankGrade:      a.Rank,
		})
	}
	return QuizLeaderboard{QuizID: quiz.ID, QuizTitle: quiz.Title, Rankings: rows}, nil
}

// PopularQuizzes returns public quizzes ordered by play count.
func (s *RankingService) PopularQuizzes(ctx context.Context, limit int) ([]domain.Quiz, error) {
	quizzes, err := s.popular.PopularQuizzes(ctx, s.clamp(limit, s.limits.Popular))
	if err != nil {
		return nil, err
	}
	if quizzes == nil {
		quizzes = []domain.Quiz{}
	}
	return quizzes, nil
}

func (s *RankingService) clamp(limit, fallback int) int {
	if limit <= 0 {
		limit = fallback
	}
	if limit > s.limits.Max {
		limit = s.limits.Max
	}
	return limit
}

func (s *RankingService) displayNames(ctx context.Context, attempts []domain.Attempt) (map[int64]string, error) {
	if len(attempts) == 0 {
		return map[int64]string{}, nil
	}
	seen := make(map[int64]struct{}, len(attempts))
	ids := make([]int64, 0, len(attempts))
	for _, a := range attempts {
		if _, ok := seen[a.UserID]; ok {
			continue
		}
		seen[a.UserID] = struct{}{}
		ids = append(ids, a.UserID)
	}
	users, err := s.users.LookupUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(users))
	for id, u := range users {
		names[id] = u.Username
	}
	return names, nil
}
