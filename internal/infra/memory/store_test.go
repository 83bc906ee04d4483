package memory

import (
	"context"
	"errors"
	"testing"

	"oshiquiz/internal/domain"
)

func seededStore(t *testing.T) (*Store, int64) {
	t.Helper()
	ctx := context.Background()
	store := NewStore()
	tag := domain.Tag{Name: "Oshi no Ko", Category: "anime"}
	if err := store.CreateTag(ctx, &tag); err != nil {
		t.Fatalf("create tag: %v", err)
	}
	quiz := sampleQuiz(tag.ID)
	if err := store.CreateQuiz(ctx, &quiz); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return store, quiz.ID
}

func sampleQuiz(tagID int64) domain.Quiz {
	return domain.Quiz{
		Title:      "Basics",
		TagID:      tagID,
		Difficulty: domain.DifficultyBeginner,
		IsPublic:   true,
		Questions: []domain.Question{
			{
				Text: "Second", Type: domain.QuestionTrueFalse, OrderIndex: 2,
				Choices: []domain.Choice{
					{Text: "False", OrderIndex: 2},
					{Text: "True", IsCorrect: true, OrderIndex: 1},
				},
			},
			{
				Text: "First", Type: domain.QuestionMultipleChoice, OrderIndex: 1,
				Choices: []domain.Choice{
					{Text: "3", OrderIndex: 1},
					{Text: "4", IsCorrect: true, OrderIndex: 2},
				},
			},
		},
	}
}

func TestCreateQuizAssignsIDsAndOrdersContent(t *testing.T) {
	store, quizID := seededStore(t)

	quiz, err := store.GetQuiz(context.Background(), quizID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if quiz.Tag == nil || quiz.Tag.Name != "Oshi no Ko" {
		t.Fatalf("expected tag joined, got %+v", quiz.Tag)
	}
	if quiz.Questions[0].Text != "First" || quiz.Questions[1].Text != "Second" {
		t.Fatalf("expected questions in order_index order, got %+v", quiz.Questions)
	}
	second := quiz.Questions[1]
	if second.Choices[0].Text != "True" || second.Choices[0].QuestionID != second.ID {
		t.Fatalf("expected choices ordered and linked, got %+v", second.Choices)
	}

	// callers cannot mutate stored content
	quiz.Questions[0].Text = "mutated"
	again, _ := store.GetQuiz(context.Background(), quizID)
	if again.Questions[0].Text != "First" {
		t.Fatalf("expected stored quiz to be isolated from callers")
	}
}

func TestCreateQuizUnknownTag(t *testing.T) {
	store := NewStore()
	quiz := sampleQuiz(99)
	if err := store.CreateQuiz(context.Background(), &quiz); !errors.Is(err, domain.ErrTagNotFound) {
		t.Fatalf("expected tag not found, got %v", err)
	}
}

func TestCreateTagRejectsDuplicates(t *testing.T) {
	store, _ := seededStore(t)
	dup := domain.Tag{Name: "Oshi no Ko", Category: "manga"}
	if err := store.CreateTag(context.Background(), &dup); !errors.Is(err, domain.ErrTagExists) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestRefreshQuizStatsRecomputesAverage(t *testing.T) {
	ctx := context.Background()
	store, quizID := seededStore(t)

	stats, err := store.RefreshQuizStats(ctx, quizID)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if stats.PlayCount != 1 || stats.AverageScore != 0 {
		t.Fatalf("expected zero-attempt average 0, got %+v", stats)
	}

	for _, a := range []domain.Attempt{
		{QuizID: quizID, Score: 1, TotalQuestions: 2},
		{QuizID: quizID, Score: 2, TotalQuestions: 2},
		{QuizID: quizID, Score: 0, TotalQuestions: 0},
	} {
		a := a
		if err := store.CreateAttempt(ctx, &a); err != nil {
			t.Fatalf("create attempt: %v", err)
		}
	}
	stats, err = store.RefreshQuizStats(ctx, quizID)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	// (50 + 100 + 0) / 3
	if stats.PlayCount != 2 || stats.AverageScore != 50 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	stats, err = store.ReconcileQuizStats(ctx, quizID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if stats.PlayCount != 3 || stats.AverageScore != 50 {
		t.Fatalf("expected play count rebuilt from attempts, got %+v", stats)
	}
}

func TestRefreshQuizStatsUnknownQuiz(t *testing.T) {
	if _, err := NewStore().RefreshQuizStats(context.Background(), 5); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteQuizKeepsAttempts(t *testing.T) {
	ctx := context.Background()
	store, quizID := seededStore(t)
	attempt := domain.Attempt{QuizID: quizID, Score: 1, TotalQuestions: 1}
	if err := store.CreateAttempt(ctx, &attempt); err != nil {
		t.Fatalf("create attempt: %v", err)
	}

	if err := store.DeleteQuiz(ctx, quizID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetQuiz(ctx, quizID); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz gone, got %v", err)
	}
	attempts, _ := store.TopAttempts(ctx, quizID, 10)
	if len(attempts) != 1 {
		t.Fatalf("expected attempts to survive deletion, got %d", len(attempts))
	}
	if err := store.DeleteQuiz(ctx, quizID); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected second delete to report not found, got %v", err)
	}
}

func TestListAndPopularQuizzes(t *testing.T) {
	ctx := context.Background()
	store, first := seededStore(t)
	tags, _ := store.ListTags(ctx)

	hidden := sampleQuiz(tags[0].ID)
	hidden.IsPublic = false
	_ = store.CreateQuiz(ctx, &hidden)

	hard := sampleQuiz(tags[0].ID)
	hard.Difficulty = domain.DifficultyMania
	_ = store.CreateQuiz(ctx, &hard)
	_, _ = store.RefreshQuizStats(ctx, hard.ID)

	all, _ := store.ListQuizzes(ctx, domain.QuizFilter{})
	if len(all) != 2 {
		t.Fatalf("expected 2 public quizzes, got %d", len(all))
	}
	if all[0].Questions != nil || all[0].QuestionCount != 2 {
		t.Fatalf("expected summaries with question counts, got %+v", all[0])
	}

	mania, _ := store.ListQuizzes(ctx, domain.QuizFilter{Difficulty: domain.DifficultyMania})
	if len(mania) != 1 || mania[0].ID != hard.ID {
		t.Fatalf("expected mania filter to match one quiz, got %+v", mania)
	}
	manga, _ := store.ListQuizzes(ctx, domain.QuizFilter{Category: "manga"})
	if len(manga) != 0 {
		t.Fatalf("expected no manga quizzes, got %d", len(manga))
	}

	popular, _ := store.PopularQuizzes(ctx, 10)
	if len(popular) != 2 || popular[0].ID != hard.ID || popular[1].ID != first {
		t.Fatalf("expected most played first, got %+v", popular)
	}
	top, _ := store.PopularQuizzes(ctx, 1)
	if len(top) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(top))
	}
}

func TestLookupUsersSkipsMissing(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	u := domain.User{Username: "ruby"}
	_ = store.CreateUser(ctx, &u)

	users, err := store.LookupUsers(ctx, []int64{u.ID, 999})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(users) != 1 || users[u.ID].Username != "ruby" {
		t.Fatalf("unexpected users %+v", users)
	}
	if _, err := store.GetUser(ctx, 999); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}
