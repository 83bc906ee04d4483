package app

import "sync"

// LeaderboardHub fans out fresh quiz leaderboards to live subscribers.
type LeaderboardHub struct {
	mu          sync.Mutex
	subscribers map[int64]map[chan QuizLeaderboard]struct{}
}

func NewLeaderboardHub() *LeaderboardHub {
	return &LeaderboardHub{subscribers: make(map[int64]map[chan QuizLeaderboard]struct{})}
}

// Subscribe registers a listener for initial.QuizID and queues initial as its
// first snapshot. The caller must invoke the returned cancel function to
// avoid leaks.
func (h *LeaderboardHub) Subscribe(initial QuizLeaderboard) (<-chan QuizLeaderboard, func()) {
	quizID := initial.QuizID
	ch := make(chan QuizLeaderboard, 8)
	ch <- initial

	h.mu.Lock()
	subs, ok := h.subscribers[quizID]
	if !ok {
		subs = make(map[chan QuizLeaderboard]struct{})
		h.subscribers[quizID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs, ok := h.subscribers[quizID]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(h.subscribers, quizID)
		}
	}
	return ch, cancel
}

// HasSubscribers reports whether anyone listens to the quiz.
func (h *LeaderboardHub) HasSubscribers(quizID int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[quizID]) > 0
}

// Publish delivers lb to every subscriber of its quiz without blocking.
func (h *LeaderboardHub) Publish(lb QuizLeaderboard) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers[lb.QuizID] {
		select {
		case ch <- lb:
		default:
			// slow reader: drop its oldest snapshot
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}
