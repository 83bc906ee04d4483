package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"oshiquiz/internal/domain"
)

// CatalogStore is the authoring side of quiz content.
type CatalogStore interface {
	Catalog
	PopularityStore
	ListQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.Quiz, error)
	// CreateQuiz stores the quiz with its questions and choices in one
	// transaction and fills in every generated ID.
	CreateQuiz(ctx context.Context, quiz *domain.Quiz) error
	// DeleteQuiz removes the quiz, its questions and choices. Attempts stay.
	DeleteQuiz(ctx context.Context, quizID int64) error
	ListTags(ctx context.Context) ([]domain.Tag, error)
	GetTagByName(ctx context.Context, name string) (domain.Tag, error)
	CreateTag(ctx context.Context, tag *domain.Tag) error
}

// CatalogCache is a read-through Catalog whose entries can be dropped.
type CatalogCache interface {
	Catalog
	Invalidate(ctx context.Context, quizID int64) error
}

// TagCategories lists the accepted tag categories.
var TagCategories = []string{"anime", "manga", "idol", "vtuber", "other"}

// CatalogService manages quizzes, tags and users.
type CatalogService struct {
	store CatalogStore
	cache CatalogCache
	users UserDirectory
}

func NewCatalogService(store CatalogStore, cache CatalogCache, users UserDirectory) *CatalogService {
	return &CatalogService{store: store, cache: cache, users: users}
}

func (s *CatalogService) ListTags(ctx context.Context) ([]domain.Tag, error) {
	return s.store.ListTags(ctx)
}

func (s *CatalogService) CreateTag(ctx context.Context, tag *domain.Tag) error {
	tag.Name = strings.TrimSpace(tag.Name)
	if tag.Name == "" {
		return fmt.Errorf("%w: tag name is required", domain.ErrInvalidInput)
	}
	if !validCategory(tag.Category) {
		return fmt.Errorf("%w: unknown category %q", domain.ErrInvalidInput, tag.Category)
	}
	return s.store.CreateTag(ctx, tag)
}

// EnsureTag returns the tag with the given name, creating it when missing.
func (s *CatalogService) EnsureTag(ctx context.Context, name, category string) (domain.Tag, error) {
	tag, err := s.store.GetTagByName(ctx, name)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, domain.ErrTagNotFound) {
		return domain.Tag{}, err
	}
	tag = domain.Tag{Name: name, Category: category}
	if err := s.CreateTag(ctx, &tag); err != nil {
		return domain.Tag{}, err
	}
	return tag, nil
}

func (s *CatalogService) ListQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.Quiz, error) {
	quizzes, err := s.store.ListQuizzes(ctx, filter)
	if err != nil {
		return nil, err
	}
	if quizzes == nil {
		quizzes = []domain.Quiz{}
	}
	return quizzes, nil
}

// GetQuiz reads the store directly so the returned counters are current.
func (s *CatalogService) GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	return s.store.GetQuiz(ctx, quizID)
}

// CreateQuiz validates and stores a quiz. A question whose answer key is
// malformed is accepted and logged; grading treats it as having no correct
// choice.
func (s *CatalogService) CreateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	if err := validateQuiz(quiz); err != nil {
		return err
	}
	for _, q := range quiz.Questions {
		if countCorrect(q) != 1 {
			log.Warn().Str("quiz", quiz.Title).Int("order_index", q.OrderIndex).
				Msg("question does not have exactly one correct choice")
		}
	}
	return s.store.CreateQuiz(ctx, quiz)
}

// DeleteQuiz removes a quiz and drops its cached content.
func (s *CatalogService) DeleteQuiz(ctx context.Context, quizID int64) error {
	if err := s.store.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, quizID); err != nil {
		log.Warn().Err(err).Int64("quiz_id", quizID).Msg("cached quiz not invalidated")
	}
	return nil
}

func (s *CatalogService) CreateUser(ctx context.Context, user *domain.User) error {
	user.Username = strings.TrimSpace(user.Username)
	if user.Username == "" {
		return fmt.Errorf("%w: username is required", domain.ErrInvalidInput)
	}
	return s.users.CreateUser(ctx, user)
}

func (s *CatalogService) GetUser(ctx context.Context, userID int64) (domain.User, error) {
	return s.users.GetUser(ctx, userID)
}

func validateQuiz(quiz *domain.Quiz) error {
	quiz.Title = strings.TrimSpace(quiz.Title)
	if quiz.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if !quiz.Difficulty.Valid() {
		return fmt.Errorf("%w: unknown difficulty %q", domain.ErrInvalidInput, quiz.Difficulty)
	}
	orders := make(map[int]struct{}, len(quiz.Questions))
	for _, q := range quiz.Questions {
		if strings.TrimSpace(q.Text) == "" {
			return fmt.Errorf("%w: question %d has no text", domain.ErrInvalidInput, q.OrderIndex)
		}
		if q.Type != domain.QuestionMultipleChoice && q.Type != domain.QuestionTrueFalse {
			return fmt.Errorf("%w: unknown question type %q", domain.ErrInvalidInput, q.Type)
		}
		if _, dup := orders[q.OrderIndex]; dup {
			return fmt.Errorf("%w: duplicate question order_index %d", domain.ErrInvalidInput, q.OrderIndex)
		}
		orders[q.OrderIndex] = struct{}{}

		choiceOrders := make(map[int]struct{}, len(q.Choices))
		for _, c := range q.Choices {
			if _, dup := choiceOrders[c.OrderIndex]; dup {
				return fmt.Errorf("%w: duplicate choice order_index %d in question %d", domain.ErrInvalidInput, c.OrderIndex, q.OrderIndex)
			}
			choiceOrders[c.OrderIndex] = struct{}{}
		}
	}
	return nil
}

func countCorrect(q domain.Question) int {
	n := 0
	for _, c := range q.Choices {
		if c.IsCorrect {
			n++
		}
	}
	return n
}

func validCategory(category string) bool {
	for _, c := range TagCategories {
		if c == category {
			return true
		}
	}
	return false
}
