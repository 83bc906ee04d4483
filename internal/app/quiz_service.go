package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"oshiquiz/internal/domain"
)

// Catalog loads quiz content (questions and choices in order).
type Catalog interface {
	GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
}

// AttemptResult is a recorded attempt with its per-question explanations.
type AttemptResult struct {
	Attempt domain.Attempt
	Answers []GradedAnswer
}

// LeaderboardRelay carries snapshots to hubs on every service instance.
type LeaderboardRelay interface {
	Publish(ctx context.Context, lb QuizLeaderboard) error
}

// QuizService contains the submission and leaderboard use cases.
type QuizService struct {
	catalog  Catalog
	recorder *AttemptRecorder
	stats    *StatsAggregator
	rankings *RankingService
	hub      *LeaderboardHub
	relay    LeaderboardRelay
}

func NewQuizService(catalog Catalog, recorder *AttemptRecorder, stats *StatsAggregator, rankings *RankingService, hub *LeaderboardHub) *QuizService {
	if hub == nil {
		hub = NewLeaderboardHub()
	}
	return &QuizService{
		catalog:  catalog,
		recorder: recorder,
		stats:    stats,
		rankings: rankings,
		hub:      hub,
	}
}

// WithRelay routes leaderboard updates through relay instead of delivering
// them to the local hub directly.
func (s *QuizService) WithRelay(relay LeaderboardRelay) *QuizService {
	s.relay = relay
	return s
}

// Submit grades a submission, records it and refreshes the quiz counters.
// Only a missing quiz or a failed attempt write fails the call; a counter
// refresh that keeps failing after retries is logged and the recorded
// attempt is still returned.
func (s *QuizService) Submit(ctx context.Context, quizID int64, submission domain.Submission) (AttemptResult, error) {
	quiz, err := s.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return AttemptResult{}, err
	}

	graded := GradeSubmission(NewAnswerKey(quiz), submission.Answers)

	attempt, err := s.recorder.Record(ctx, submission.UserID, quizID, graded, submission.TimeTaken)
	if err != nil {
		log.Error().Err(err).Int64("quiz_id", quizID).Msg("attempt not recorded")
		return AttemptResult{}, err
	}

	if _, err := s.stats.Refresh(ctx, quizID); err != nil {
		log.Error().Err(err).
			Int64("quiz_id", quizID).
			Int64("attempt_id", attempt.ID).
			Msg("quiz stats not refreshed; run `stats reconcile`")
	}

	s.publish(ctx, quizID)

	return AttemptResult{Attempt: attempt, Answers: graded.Answers}, nil
}

// QuizRankings returns the leaderboard of a quiz.
func (s *QuizService) QuizRankings(ctx context.Context, quizID int64, limit int) (QuizLeaderboard, error) {
	return s.rankings.QuizRankings(ctx, quizID, limit)
}

// PopularQuizzes returns public quizzes by play count.
func (s *QuizService) PopularQuizzes(ctx context.Context, limit int) ([]domain.Quiz, error) {
	return s.rankings.PopularQuizzes(ctx, limit)
}

// Subscribe streams leaderboard snapshots of a quiz, starting with the
// current one. The caller must invoke the returned cancel function.
func (s *QuizService) Subscribe(ctx context.Context, quizID int64) (<-chan QuizLeaderboard, func(), error) {
	initial, err := s.rankings.QuizRankings(ctx, quizID, 0)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.hub.Subscribe(initial)
	return ch, cancel, nil
}

func (s *QuizService) publish(ctx context.Context, quizID int64) {
	// with a relay, subscribers may be connected to other instances
	if s.relay == nil && !s.hub.HasSubscribers(quizID) {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	lb, err := s.rankings.QuizRankings(ctx, quizID, 0)
	if err != nil {
		log.Warn().Err(err).Int64("quiz_id", quizID).Msg("leaderboard not published")
		return
	}
	if s.relay != nil {
		err := s.relay.Publish(ctx, lb)
		if err == nil {
			return
		}
		log.Warn().Err(err).Int64("quiz_id", quizID).Msg("leaderboard relay failed, delivering locally")
	}
	s.hub.Publish(lb)
}
