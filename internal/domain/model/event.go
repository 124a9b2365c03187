package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Topic names a change feed channel.
type Topic string

// Topic roots.
const (
	TopicLeaderboard Topic = "leaderboard"
	topicPlayer            = "player."
	topicInbox             = "inbox."
)

// PlayerTopic is invalidated when a player's own record or rank changes.
func PlayerTopic(playerID string) Topic { return Topic(topicPlayer + playerID) }

// InboxTopic is invalidated when a player's notifications change.
func InboxTopic(playerID string) Topic { return Topic(topicInbox + playerID) }

// Kind returns the topic root without the player suffix, for metric labels.
func (t Topic) Kind() string {
	s := string(t)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return s[:i]
	}
	return s
}

// ChangeEvent is an invalidation signal. Consumers re-fetch rather than trust it.
type ChangeEvent struct {
	ID         string    `json:"id" msgpack:"id"`
	Topic      Topic     `json:"topic" msgpack:"topic"`
	OccurredAt time.Time `json:"occurred_at" msgpack:"occurred_at"`
	// Origin identifies the emitting instance.
	Origin string `json:"origin,omitempty" msgpack:"origin"`
}

// NewChangeEvent stamps a fresh event for topic.
func NewChangeEvent(topic Topic) ChangeEvent {
	return ChangeEvent{
		ID:         uuid.NewString(),
		Topic:      topic,
		OccurredAt: time.Now().UTC(),
	}
}
