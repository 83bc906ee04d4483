package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"oshiquiz/internal/app"
	"oshiquiz/internal/domain"
)

// API serves the JSON endpoints.
type API struct {
	quizzes       *app.QuizService
	catalog       *app.CatalogService
	validate      *validator.Validate
	defaultUserID int64
}

func NewAPI(quizzes *app.QuizService, catalog *app.CatalogService, defaultUserID int64) *API {
	return &API{
		quizzes:       quizzes,
		catalog:       catalog,
		validate:      validator.New(),
		defaultUserID: defaultUserID,
	}
}

func (a *API) Submit(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathID(w, r, "quiz_id")
	if !ok {
		return
	}
	var req submitRequest
	if !a.decode(w, r, &req) {
		return
	}

	sub := domain.Submission{UserID: a.defaultUserID, TimeTaken: req.TimeTaken}
	if req.UserID != nil {
		sub.UserID = *req.UserID
	}
	sub.Answers = make([]domain.AnswerSubmission, 0, len(req.Answers))
	for _, ans := range req.Answers {
		sub.Answers = append(sub.Answers, domain.AnswerSubmission{QuestionID: ans.QuestionID, SelectedChoiceID: ans.SelectedChoiceID})
	}

	res, err := a.quizzes.Submit(r.Context(), quizID, sub)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAttemptResponse(res))
}

func (a *API) QuizRankings(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathID(w, r, "quiz_id")
	if !ok {
		return
	}
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	lb, err := a.quizzes.QuizRankings(r.Context(), quizID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (a *API) PopularQuizzes(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	quizzes, err := a.quizzes.PopularQuizzes(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuizSummaries(quizzes))
}

func (a *API) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.QuizFilter{Category: q.Get("category"), Difficulty: domain.Difficulty(q.Get("difficulty"))}
	if filter.Difficulty != "" && !filter.Difficulty.Valid() {
		writeError(w, r, fmt.Errorf("%w: unknown difficulty %q", domain.ErrInvalidInput, filter.Difficulty))
		return
	}
	if raw := q.Get("tag_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, r, fmt.Errorf("%w: tag_id must be a positive integer", domain.ErrInvalidInput))
			return
		}
		filter.TagID = id
	}
	quizzes, err := a.catalog.ListQuizzes(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuizSummaries(quizzes))
}

func (a *API) GetQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathID(w, r, "quiz_id")
	if !ok {
		return
	}
	quiz, err := a.catalog.GetQuiz(r.Context(), quizID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuizView(quiz))
}

func (a *API) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if !a.decode(w, r, &req) {
		return
	}
	quiz := req.toQuiz()
	if err := a.catalog.CreateQuiz(r.Context(), &quiz); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := a.catalog.GetQuiz(r.Context(), quiz.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newQuizView(created))
}

func (a *API) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathID(w, r, "quiz_id")
	if !ok {
		return
	}
	if err := a.catalog.DeleteQuiz(r.Context(), quizID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := a.catalog.ListTags(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (a *API) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if !a.decode(w, r, &req) {
		return
	}
	tag := domain.Tag{Name: req.Name, Category: req.Category, Description: req.Description}
	if err := a.catalog.CreateTag(r.Context(), &tag); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

func (a *API) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !a.decode(w, r, &req) {
		return
	}
	user := domain.User{Username: req.Username}
	if err := a.catalog.CreateUser(r.Context(), &user); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "user_id")
	if !ok {
		return
	}
	user, err := a.catalog.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// decode reads a JSON body into dst and validates it.
func (a *API) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, fmt.Errorf("%w: malformed JSON body", domain.ErrInvalidInput))
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		writeError(w, r, err)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, name))
		return 0, false
	}
	return id, true
}

func queryLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: limit must be an integer", domain.ErrInvalidInput))
		return 0, false
	}
	return limit, true
}
