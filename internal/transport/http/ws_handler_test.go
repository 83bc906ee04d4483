package http

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type leaderboardMessage struct {
	Type    string `json:"type"`
	Payload struct {
		QuizID   int64 `json:"quiz_id"`
		Rankings []struct {
			Score int `json:"score"`
		} `json:"rankings"`
		Message string `json:"message"`
	} `json:"payload"`
}

func TestLiveRankingsStream(t *testing.T) {
	env := newTestEnv(t)
	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + env.quizPath("/rankings/live")
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	initial := readMessage(t, conn)
	if initial.Type != "leaderboard" || initial.Payload.QuizID != env.quiz.ID || len(initial.Payload.Rankings) != 0 {
		t.Fatalf("unexpected initial message %+v", initial)
	}

	q1 := env.quiz.Questions[0]
	env.do(t, http.MethodPost, env.quizPath("/submit"), map[string]any{
		"answers": []map[string]any{{"question_id": q1.ID, "selected_choice_id": q1.Choices[0].ID}},
	}, nil)

	update := readMessage(t, conn)
	if update.Type != "leaderboard" || len(update.Payload.Rankings) != 1 || update.Payload.Rankings[0].Score != 1 {
		t.Fatalf("unexpected update %+v", update)
	}

	if err := conn.WriteJSON(map[string]string{"type": "refresh"}); err != nil {
		t.Fatalf("write refresh: %v", err)
	}
	if refreshed := readMessage(t, conn); len(refreshed.Payload.Rankings) != 1 {
		t.Fatalf("unexpected refresh %+v", refreshed)
	}

	if err := conn.WriteJSON(map[string]string{"type": "answer"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := readMessage(t, conn); msg.Type != "error" || msg.Payload.Message == "" {
		t.Fatalf("expected error message, got %+v", msg)
	}
}

func TestLiveRankingsUnknownQuiz(t *testing.T) {
	env := newTestEnv(t)
	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/quizzes/999/rankings/live"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 response, got %+v", resp)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) leaderboardMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg leaderboardMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}
