package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"oshiquiz/internal/app"
)

const leaderboardPrefix = "quiz:leaderboard:"

// LeaderboardRelay shares leaderboard snapshots between service instances.
// Every instance publishes through Redis and forwards what it receives to
// its local hub, so a websocket client sees updates no matter which
// instance recorded the attempt.
type LeaderboardRelay struct {
	client *redis.Client
	hub    *app.LeaderboardHub
}

var _ app.LeaderboardRelay = (*LeaderboardRelay)(nil)

func NewLeaderboardRelay(client *redis.Client, hub *app.LeaderboardHub) *LeaderboardRelay {
	return &LeaderboardRelay{client: client, hub: hub}
}

func (r *LeaderboardRelay) Publish(ctx context.Context, lb app.QuizLeaderboard) error {
	raw, err := json.Marshal(lb)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, channel(lb.QuizID), raw).Err()
}

// Run forwards published snapshots to the local hub until ctx is done.
func (r *LeaderboardRelay) Run(ctx context.Context) error {
	sub := r.client.PSubscribe(ctx, leaderboardPrefix+"*")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe leaderboards: %w", err)
	}

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if _, err := strconv.ParseInt(strings.TrimPrefix(msg.Channel, leaderboardPrefix), 10, 64); err != nil {
				continue
			}
			var lb app.QuizLeaderboard
			if err := json.Unmarshal([]byte(msg.Payload), &lb); err != nil {
				log.Warn().Err(err).Str("channel", msg.Channel).Msg("bad leaderboard payload")
				continue
			}
			r.hub.Publish(lb)
		}
	}
}

func channel(quizID int64) string {
	return leaderboardPrefix + strconv.FormatInt(quizID, 10)
}
