package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"golang.org/x/sync/errgroup"
	"oshiquiz/internal/app"
	"oshiquiz/internal/domain"
	"oshiquiz/internal/infra/postgres"
	pgmigrations "oshiquiz/internal/infra/postgres/migrations"
	infraredis "oshiquiz/internal/infra/redis"
)

type stack struct {
	store   *postgres.Store
	redis   *goredis.Client
	quizzes *app.QuizService
	catalog *app.CatalogService
	hub     *app.LeaderboardHub
}

func TestSubmitAndRankEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)
	s := newStack(t, ctx)

	user := domain.User{Username: "aqua"}
	if err := s.catalog.CreateUser(ctx, &user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	tag := domain.Tag{Name: "推しの子", Category: "anime"}
	if err := s.catalog.CreateTag(ctx, &tag); err != nil {
		t.Fatalf("create tag: %v", err)
	}
	if err := s.catalog.CreateTag(ctx, &domain.Tag{Name: "推しの子", Category: "manga"}); !errors.Is(err, domain.ErrTagExists) {
		t.Fatalf("expected duplicate tag error, got %v", err)
	}
	quiz := sampleQuiz(tag.ID)
	if err := s.catalog.CreateQuiz(ctx, &quiz); err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	loaded, err := s.catalog.GetQuiz(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if len(loaded.Questions) != 2 || loaded.Questions[0].Text != "Q1" || len(loaded.Questions[1].Choices) != 2 {
		t.Fatalf("unexpected loaded quiz %+v", loaded)
	}

	q1, q2 := loaded.Questions[0], loaded.Questions[1]
	perfect := []domain.AnswerSubmission{
		{QuestionID: q1.ID, SelectedChoiceID: &q1.Choices[0].ID},
		{QuestionID: q2.ID, SelectedChoiceID: &q2.Choices[1].ID},
	}
	half := []domain.AnswerSubmission{
		{QuestionID: q1.ID, SelectedChoiceID: &q1.Choices[0].ID},
		{QuestionID: q2.ID},
	}

	const n = 10
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			answers := half
			if i%2 == 0 {
				answers = perfect
			}
			secs := 100 - i
			_, err := s.quizzes.Submit(ctx, quiz.ID, domain.Submission{UserID: user.ID, TimeTaken: &secs, Answers: answers})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("submit: %v", err)
	}

	stored, _ := s.store.GetQuiz(ctx, quiz.ID)
	if stored.Stats.PlayCount != n || stored.Stats.AverageScore != 75 {
		t.Fatalf("unexpected stats %+v", stored.Stats)
	}

	lb, err := s.quizzes.QuizRankings(ctx, quiz.ID, 3)
	if err != nil {
		t.Fatalf("rankings: %v", err)
	}
	if len(lb.Rankings) != 3 || lb.Rankings[0].Score != 2 || *lb.Rankings[0].TimeTaken != 92 || lb.Rankings[0].PlayerName != "aqua" {
		t.Fatalf("unexpected leaderboard %+v", lb.Rankings)
	}

	popular, err := s.quizzes.PopularQuizzes(ctx, 0)
	if err != nil || len(popular) != 1 || popular[0].Stats.PlayCount != n || popular[0].Tag.Name != "推しの子" {
		t.Fatalf("unexpected popular list %+v %v", popular, err)
	}

	if _, err := s.store.ReconcileQuizStats(ctx, quiz.ID); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if err := s.catalog.DeleteQuiz(ctx, quiz.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.quizzes.QuizRankings(ctx, quiz.ID, 0); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected deleted quiz to be gone, got %v", err)
	}
	attempts, err := s.store.TopAttempts(ctx, quiz.ID, 100)
	if err != nil || len(attempts) != n {
		t.Fatalf("expected attempts to survive deletion, got %d %v", len(attempts), err)
	}
}

func TestLiveLeaderboardThroughRedis(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	requireDocker(t)
	s := newStack(t, ctx)

	relay := infraredis.NewLeaderboardRelay(s.redis, s.hub)
	s.quizzes.WithRelay(relay)
	go func() { _ = relay.Run(ctx) }()

	tag := domain.Tag{Name: "B小町", Category: "idol"}
	_ = s.catalog.CreateTag(ctx, &tag)
	quiz := sampleQuiz(tag.ID)
	if err := s.catalog.CreateQuiz(ctx, &quiz); err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	ch, unsubscribe, err := s.quizzes.Subscribe(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsubscribe()
	<-ch

	deadline := time.Now().Add(5 * time.Second)
	for {
		n, _ := s.redis.PubSubNumPat(ctx).Result()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	if _, err := s.quizzes.Submit(ctx, quiz.ID, domain.Submission{UserID: 1}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	select {
	case lb := <-ch:
		if len(lb.Rankings) != 1 || lb.Rankings[0].PlayerName != app.UnknownPlayer {
			t.Fatalf("unexpected update %+v", lb)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no update relayed")
	}
}

func newStack(t *testing.T, ctx context.Context) stack {
	t.Helper()
	pgURL, pgCleanup := startPostgres(t, ctx)
	t.Cleanup(pgCleanup)
	redisURL, redisCleanup := startRedis(t, ctx)
	t.Cleanup(redisCleanup)

	applyMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	t.Cleanup(pool.Close)
	store := postgres.NewStore(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	t.Cleanup(func() { _ = redisClient.Close() })
	cache := infraredis.NewCatalogCache(redisClient, store, 5*time.Minute)

	hub := app.NewLeaderboardHub()
	rankings := app.NewRankingService(cache, store, store, store, app.Limits{})
	quizzes := app.NewQuizService(cache, app.NewAttemptRecorder(store), app.NewStatsAggregator(store, 0), rankings, hub)
	return stack{
		store:   store,
		redis:   redisClient,
		quizzes: quizzes,
		catalog: app.NewCatalogService(store, cache, store),
		hub:     hub,
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	container := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	})
	addr, err := container.PortEndpoint(ctx, "5432/tcp", "")
	if err != nil {
		t.Fatalf("postgres endpoint: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s/quizdb?sslmode=disable", addr)
	return dsn, func() { _ = container.Terminate(ctx) }
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	container := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	})
	addr, err := container.PortEndpoint(ctx, "6379/tcp", "")
	if err != nil {
		t.Fatalf("redis endpoint: %v", err)
	}
	url := "redis://" + addr
	return url, func() { _ = container.Terminate(ctx) }
}

func startContainer(t *testing.T, ctx context.Context, req tc.ContainerRequest) tc.Container {
	t.Helper()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start %s: %v", req.Image, err)
	}
	return container
}

func applyMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func sampleQuiz(tagID int64) domain.Quiz {
	return domain.Quiz{
		Title:      "Integration",
		TagID:      tagID,
		Difficulty: domain.DifficultyIntermediate,
		IsPublic:   true,
		Questions: []domain.Question{
			{Text: "Q1", Type: domain.QuestionMultipleChoice, OrderIndex: 1, Explanation: "first", Choices: []domain.Choice{
				{Text: "yes", IsCorrect: true, OrderIndex: 1},
				{Text: "no", OrderIndex: 2},
			}},
			{Text: "Q2", Type: domain.QuestionTrueFalse, OrderIndex: 2, Choices: []domain.Choice{
				{Text: "True", OrderIndex: 1},
				{Text: "False", IsCorrect: true, OrderIndex: 2},
			}},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
