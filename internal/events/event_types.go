package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/blog-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventPostCreated           EventType = "post_created"
	EventPostDeleted           EventType = "post_deleted"
	EventCommentAdded          EventType = "comment_added"
	EventSubscriptionActivated EventType = "subscription_activated"
	EventPostLimitReached      EventType = "post_limit_reached"
)

// AllEventTypes lists every type a subscriber may want to forward.
var AllEventTypes = []EventType{
	EventPostCreated,
	EventPostDeleted,
	EventCommentAdded,
	EventSubscriptionActivated,
	EventPostLimitReached,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	PostID    string      `json:"post_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// New stamps an event with a fresh id and time.
func New(eventType EventType, userID, postID string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		PostID:    postID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// PostCreatedPayload payload.
type PostCreatedPayload struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags,omitempty"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID string  `json:"comment_id"`
	ParentID  *string `json:"parent_id,omitempty"`
	Preview   string  `json:"preview"`
}

// SubscriptionActivatedPayload payload.
type SubscriptionActivatedPayload struct {
	Source domain.PaymentSource `json:"source"`
}

// PostLimitReachedPayload payload.
type PostLimitReachedPayload struct {
	PostCount int `json:"post_count"`
}
