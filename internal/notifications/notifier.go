// Package notifications publishes post lifecycle events over Redis pub/sub.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"quill/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// EventsChannel is the Redis channel every lifecycle event is published on.
const EventsChannel = "quill:events"

// Event types.
const (
	EventPostPublished = "post.published"
	EventPostUpdated   = "post.updated"
	EventPostDeleted   = "post.deleted"
	EventPostLiked     = "post.liked"
	EventPostUnliked   = "post.unliked"
)

// Event is the JSON payload published for a lifecycle change.
type Event struct {
	Type       string    `json:"type"`
	PostID     uint      `json:"post_id"`
	ProfileID  uint      `json:"profile_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher is what services depend on to announce events.
type Publisher interface {
	Publish(ctx context.Context, eventType string, postID, profileID uint)
}

// Notifier publishes events into Redis. A Notifier with a nil client drops
// everything.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Publish sends the event on EventsChannel. Delivery is best-effort: the
// change it describes is already committed, so failures are only logged.
func (n *Notifier) Publish(ctx context.Context, eventType string, postID, profileID uint) {
	if n == nil || n.rdb == nil {
		return
	}
	payload, err := json.Marshal(Event{
		Type:       eventType,
		PostID:     postID,
		ProfileID:  profileID,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to encode event", slog.String("type", eventType), slog.String("error", err.Error()))
		return
	}
	if err := n.rdb.Publish(ctx, EventsChannel, payload).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish event",
			slog.String("type", eventType),
			slog.Uint64("post_id", uint64(postID)),
			slog.String("error", err.Error()),
		)
	}
}

// Subscribe delivers decoded events to onEvent until ctx is cancelled. It
// returns once the subscription is confirmed.
func (n *Notifier) Subscribe(ctx context.Context, onEvent func(Event)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, EventsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", EventsChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					middleware.Logger.Warn("dropping malformed event", slog.String("error", err.Error()))
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in event subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onEvent(evt)
				}()
			}
		}
	}()

	return nil
}

// MatchTypes returns a predicate accepting events of the given types. With no
// types every event matches.
func MatchTypes(types ...string) func(Event) bool {
	wanted := make(map[string]struct{}, len(types))
	for _, t := range types {
		if t = strings.TrimSpace(t); t != "" {
			wanted[t] = struct{}{}
		}
	}
	return func(evt Event) bool {
		if len(wanted) == 0 {
			return true
		}
		_, ok := wanted[evt.Type]
		return ok
	}
}
