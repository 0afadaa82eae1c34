package redis

import (
	"context"
	"encoding/json"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/vango-dev/nested/pkg/nested"
)

// Follow subscribes to channel and mirrors the changes published for session
// into reg until ctx is cancelled. It returns nil on cancellation.
func Follow(ctx context.Context, client *backend.Client, channel, session string, reg *nested.Registry) error {
	if channel == "" {
		channel = DefaultChannel
	}
	sub := client.Subscribe(ctx, channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed so no message is missed.
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			apply(reg, session, msg.Payload)
		}
	}
}

func apply(reg *nested.Registry, session, payload string) bool {
	var m Message
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return false
	}
	if m.Session != session {
		return false
	}
	switch m.Kind {
	case nested.ChangeOpened:
		reg.SetOpened(m.Values)
	case nested.ChangeSelected:
		reg.SetSelected(m.Values)
	default:
		return false
	}
	return true
}
