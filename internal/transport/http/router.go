package http

import "net/http"

// NewRouter mounts every endpoint under /api plus /healthz.
func NewRouter(api *API, ws *WSHandler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /api/quizzes/{quiz_id}/submit", api.Submit)
	mux.HandleFunc("GET /api/quizzes/{quiz_id}/rankings", api.QuizRankings)
	mux.HandleFunc("GET /api/quizzes/{quiz_id}/rankings/live", ws.ServeWS)
	mux.HandleFunc("GET /api/rankings/quizzes", api.PopularQuizzes)

	mux.HandleFunc("GET /api/quizzes", api.ListQuizzes)
	mux.HandleFunc("POST /api/quizzes", api.CreateQuiz)
	mux.HandleFunc("GET /api/quizzes/{quiz_id}", api.GetQuiz)
	mux.HandleFunc("DELETE /api/quizzes/{quiz_id}", api.DeleteQuiz)

	mux.HandleFunc("GET /api/tags", api.ListTags)
	mux.HandleFunc("POST /api/tags", api.CreateTag)
	mux.HandleFunc("POST /api/users", api.CreateUser)
	mux.HandleFunc("GET /api/users/{user_id}", api.GetUser)

	return withRequestLog(mux)
}
