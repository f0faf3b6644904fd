package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// Notifier fans payment-outcome events out to users. The socket layer
// subscribes to the per-user channels and pushes to connected clients.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event string, payload map[string]any) error
}

type redisNotifier struct {
	client *redis.Client
}

// NewRedis builds the pub/sub notifier. Addr empty means notifications are
// disabled; callers get the no-op implementation instead of nil checks.
func NewRedis(addr, password string) Notifier {
	if addr == "" {
		return Nop{}
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("[notify] redis ping failed, notifications disabled: %v", err)
		return Nop{}
	}
	return &redisNotifier{client: client}
}

type envelope struct {
	Event   string         `json:"event"`
	UserID  string         `json:"userId"`
	Payload map[string]any `json:"payload"`
	At      time.Time      `json:"at"`
}

func (n *redisNotifier) Notify(ctx context.Context, userID uuid.UUID, event string, payload map[string]any) error {
	msg, err := json.Marshal(envelope{
		Event:   event,
		UserID:  userID.String(),
		Payload: payload,
		At:      time.Now(),
	})
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, "notify:"+userID.String(), msg).Err()
}

// Nop drops every event. Used when redis is not configured and in tests.
type Nop struct{}

func (Nop) Notify(context.Context, uuid.UUID, string, map[string]any) error { return nil }
