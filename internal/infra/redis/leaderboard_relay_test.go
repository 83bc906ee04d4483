package redis

import (
	"context"
	"testing"
	"time"

	"oshiquiz/internal/app"
)

func TestRelayDeliversToEveryInstance(t *testing.T) {
	_, client := newMiniredis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hubA, hubB := app.NewLeaderboardHub(), app.NewLeaderboardHub()
	relayA := NewLeaderboardRelay(client, hubA)
	relayB := NewLeaderboardRelay(client, hubB)
	done := make(chan error, 2)
	go func() { done <- relayA.Run(ctx) }()
	go func() { done <- relayB.Run(ctx) }()

	chA, cancelA := hubA.Subscribe(app.QuizLeaderboard{QuizID: 1})
	defer cancelA()
	chB, cancelB := hubB.Subscribe(app.QuizLeaderboard{QuizID: 1})
	defer cancelB()
	<-chA
	<-chB

	// wait until both relays are subscribed
	deadline := time.Now().Add(2 * time.Second)
	for {
		n, _ := client.PubSubNumPat(ctx).Result()
		if n >= 2 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := relayA.Publish(ctx, app.QuizLeaderboard{QuizID: 1, QuizTitle: "updated"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for name, ch := range map[string]<-chan app.QuizLeaderboard{"a": chA, "b": chB} {
		select {
		case lb := <-ch:
			if lb.QuizTitle != "updated" {
				t.Fatalf("hub %s got %+v", name, lb)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("hub %s received nothing", name)
		}
	}

	cancel()
	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Fatalf("relay stopped with %v", err)
		}
	}
}
