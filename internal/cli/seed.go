package cli

import (
	"context"

	"oshiquiz/internal/app"
	"oshiquiz/internal/domain"
)

// seedDemo gives the in-memory backend a guest user, a tag and one quiz so
// the API is usable without a database.
func seedDemo(ctx context.Context, store interface {
	app.CatalogStore
	app.UserDirectory
}) error {
	guest := domain.User{Username: "guest"}
	if err := store.CreateUser(ctx, &guest); err != nil {
		return err
	}
	tag := domain.Tag{Name: "推しの子", Category: "anime", Description: "【推しの子】"}
	if err := store.CreateTag(ctx, &tag); err != nil {
		return err
	}
	quiz := domain.Quiz{
		CreatorID:  guest.ID,
		Title:      "基本情報",
		TagID:      tag.ID,
		Difficulty: domain.DifficultyBeginner,
		IsPublic:   true,
		Questions: []domain.Question{
			{
				Text:        "アイが所属していたアイドルグループは？",
				Type:        domain.QuestionMultipleChoice,
				OrderIndex:  1,
				Explanation: "アイはB小町のセンターだった。",
				Choices: []domain.Choice{
					{Text: "B小町", IsCorrect: true, OrderIndex: 1},
					{Text: "ララライ", OrderIndex: 2},
					{Text: "苺プロダクション", OrderIndex: 3},
					{Text: "今日あま", OrderIndex: 4},
				},
			},
			{
				Text:       "有馬かなは元子役である。",
				Type:       domain.QuestionTrueFalse,
				OrderIndex: 2,
				Choices: []domain.Choice{
					{Text: "はい", IsCorrect: true, OrderIndex: 1},
					{Text: "いいえ", OrderIndex: 2},
				},
			},
		},
	}
	return store.CreateQuiz(ctx, &quiz)
}
