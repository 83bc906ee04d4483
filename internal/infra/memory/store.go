package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"oshiquiz/internal/app"
	"oshiquiz/internal/domain"
)

// Store is an in-memory implementation of the catalog, attempt, stats and
// user stores. A single mutex makes every multi-record write atomic.
type Store struct {
	mu    sync.RWMutex
	clock func() time.Time

	seq      map[string]int64
	tags     map[int64]domain.Tag
	users    map[int64]domain.User
	quizzes  map[int64]domain.Quiz
	attempts map[int64][]domain.Attempt // by quiz id, append-only
}

var (
	_ app.CatalogStore  = (*Store)(nil)
	_ app.AttemptStore  = (*Store)(nil)
	_ app.StatsStore    = (*Store)(nil)
	_ app.UserDirectory = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		clock:    time.Now,
		seq:      make(map[string]int64),
		tags:     make(map[int64]domain.Tag),
		users:    make(map[int64]domain.User),
		quizzes:  make(map[int64]domain.Quiz),
		attempts: make(map[int64][]domain.Attempt),
	}
}

func (s *Store) nextID(kind string) int64 {
	s.seq[kind]++
	return s.seq[kind]
}

// --- tags ---

func (s *Store) ListTags(_ context.Context) ([]domain.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Tag, 0, len(s.tags))
	for _, t := range s.tags {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetTagByName(_ context.Context, name string) (domain.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tags {
		if t.Name == name {
			return t, nil
		}
	}
	return domain.Tag{}, domain.ErrTagNotFound
}

func (s *Store) CreateTag(_ context.Context, tag *domain.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tags {
		if t.Name == tag.Name {
			return domain.ErrTagExists
		}
	}
	tag.ID = s.nextID("tag")
	tag.CreatedAt = s.clock().UTC()
	s.tags[tag.ID] = *tag
	return nil
}

// --- users ---

func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.ID = s.nextID("user")
	user.CreatedAt = s.clock().UTC()
	s.users[user.ID] = *user
	return nil
}

func (s *Store) GetUser(_ context.Context, userID int64) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) LookupUsers(_ context.Context, ids []int64) (map[int64]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]domain.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

// --- quizzes ---

func (s *Store) CreateQuiz(_ context.Context, quiz *domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tags[quiz.TagID]; !ok {
		return domain.ErrTagNotFound
	}

	now := s.clock().UTC()
	quiz.ID = s.nextID("quiz")
	quiz.CreatedAt = now
	quiz.UpdatedAt = now
	quiz.Stats = domain.QuizStats{}
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		q.ID = s.nextID("question")
		q.QuizID = quiz.ID
		for j := range q.Choices {
			q.Choices[j].ID = s.nextID("choice")
			q.Choices[j].QuestionID = q.ID
		}
	}
	quiz.QuestionCount = len(quiz.Questions)

	stored := cloneQuiz(*quiz)
	sortContent(&stored)
	stored.Tag = nil
	s.quizzes[quiz.ID] = stored
	return nil
}

// GetQuiz returns a copy of the quiz with its content in order.
func (s *Store) GetQuiz(_ context.Context, quizID int64) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return s.withTagLocked(cloneQuiz(q)), nil
}

func (s *Store) ListQuizzes(_ context.Context, filter domain.QuizFilter) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0)
	for _, q := range s.quizzes {
		if !q.IsPublic {
			continue
		}
		if filter.Difficulty != "" && q.Difficulty != filter.Difficulty {
			continue
		}
		if filter.TagID != 0 && q.TagID != filter.TagID {
			continue
		}
		if filter.Category != "" && s.tags[q.TagID].Category != filter.Category {
			continue
		}
		out = append(out, s.summaryLocked(q))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) PopularQuizzes(_ context.Context, limit int) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0)
	for _, q := range s.quizzes {
		if q.IsPublic {
			out = append(out, s.summaryLocked(q))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stats.PlayCount != out[j].Stats.PlayCount {
			return out[i].Stats.PlayCount > out[j].Stats.PlayCount
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) DeleteQuiz(_ context.Context, quizID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, quizID)
	return nil
}

// --- attempts ---

func (s *Store) CreateAttempt(_ context.Context, attempt *domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt.ID = s.nextID("attempt")
	for i := range attempt.Answers {
		attempt.Answers[i].ID = s.nextID("answer")
		attempt.Answers[i].AttemptID = attempt.ID
	}
	stored := *attempt
	stored.Answers = append([]domain.Answer(nil), attempt.Answers...)
	s.attempts[attempt.QuizID] = append(s.attempts[attempt.QuizID], stored)
	return nil
}

func (s *Store) TopAttempts(_ context.Context, quizID int64, limit int) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.attempts[quizID]
	out := make([]domain.Attempt, 0, len(src))
	for _, a := range src {
		a.Answers = nil
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return domain.Outranks(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- stats ---

func (s *Store) RefreshQuizStats(_ context.Context, quizID int64) (domain.QuizStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[quizID]
	if !ok {
		return domain.QuizStats{}, domain.ErrQuizNotFound
	}
	q.Stats.PlayCount++
	q.Stats.AverageScore = s.averageLocked(quizID)
	q.UpdatedAt = s.clock().UTC()
	s.quizzes[quizID] = q
	return q.Stats, nil
}

func (s *Store) ReconcileQuizStats(_ context.Context, quizID int64) (domain.QuizStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[quizID]
	if !ok {
		return domain.QuizStats{}, domain.ErrQuizNotFound
	}
	q.Stats.PlayCount = len(s.attempts[quizID])
	q.Stats.AverageScore = s.averageLocked(quizID)
	s.quizzes[quizID] = q
	return q.Stats, nil
}

func (s *Store) QuizIDs(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.quizzes))
	for id := range s.quizzes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *Store) averageLocked(quizID int64) float64 {
	attempts := s.attempts[quizID]
	if len(attempts) == 0 {
		return 0
	}
	var sum float64
	for _, a := range attempts {
		sum += app.Percentage(a.Score, a.TotalQuestions)
	}
	return sum / float64(len(attempts))
}

func (s *Store) summaryLocked(q domain.Quiz) domain.Quiz {
	out := s.withTagLocked(q)
	out.QuestionCount = len(q.Questions)
	out.Questions = nil
	return out
}

func (s *Store) withTagLocked(q domain.Quiz) domain.Quiz {
	if t, ok := s.tags[q.TagID]; ok {
		tag := t
		q.Tag = &tag
	}
	q.QuestionCount = len(q.Questions)
	return q
}

func cloneQuiz(q domain.Quiz) domain.Quiz {
	out := q
	out.Questions = make([]domain.Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Choices = append([]domain.Choice(nil), question.Choices...)
		out.Questions[i] = question
	}
	return out
}

func sortContent(q *domain.Quiz) {
	sort.SliceStable(q.Questions, func(i, j int) bool { return q.Questions[i].OrderIndex < q.Questions[j].OrderIndex })
	for i := range q.Questions {
		choices := q.Questions[i].Choices
		sort.SliceStable(choices, func(a, b int) bool { return choices[a].OrderIndex < choices[b].OrderIndex })
	}
}
