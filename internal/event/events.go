// Package event models the inbound webhook payload as a closed tagged
// variant. Anything the dispatcher does not handle explicitly is classified
// as KindOther at the parsing boundary, so no unhandled event shape reaches
// deeper logic.
package event

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind identifies the variant of an inbound event.
type Kind string

const (
	// KindText is a text message event carrying Text.
	KindText Kind = "text"
	// KindImage is an image message event carrying ContentID.
	KindImage Kind = "image"
	// KindOther covers every remaining event shape (follow, unfollow,
	// stickers, unknown types). Always a no-op downstream.
	KindOther Kind = "other"
)

// Event is one inbound webhook event. UserID may be empty (the platform
// omits the source for some event shapes); ReplyToken is only set for
// message events and authorizes exactly one reply.
type Event struct {
	Kind       Kind
	UserID     string
	ReplyToken string
	Text       string
	ContentID  string
}

// Routable reports whether the event can be routed and replied to.
// Unroutable events are skipped silently.
func (e Event) Routable() bool {
	return e.UserID != "" && e.ReplyToken != ""
}

// Wire format of the Messaging API webhook body. Only the fields the
// pipeline consumes are modeled.

type webhookBody struct {
	Events []webhookEvent `json:"events"`
}

type webhookEvent struct {
	Type       string          `json:"type"`
	ReplyToken string          `json:"replyToken"`
	Source     *webhookSource  `json:"source"`
	Message    *webhookMessage `json:"message"`
}

type webhookSource struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

type webhookMessage struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

// ParseBatch decodes a webhook request body into the ordered event list.
// An unparseable body is the only error; unknown event or message types are
// mapped to KindOther, never rejected.
func ParseBatch(body []byte) ([]Event, error) {
	var wire webhookBody
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("parse webhook body: %w", err)
	}

	events := make([]Event, 0, len(wire.Events))
	for _, we := range wire.Events {
		events = append(events, classify(we))
	}
	return events, nil
}

func classify(we webhookEvent) Event {
	ev := Event{Kind: KindOther}
	if we.Source != nil {
		ev.UserID = strings.TrimSpace(we.Source.UserID)
	}
	if we.Type != "message" || we.Message == nil {
		return ev
	}
	ev.ReplyToken = strings.TrimSpace(we.ReplyToken)
	switch we.Message.Type {
	case "text":
		ev.Kind = KindText
		ev.Text = we.Message.Text
	case "image":
		ev.Kind = KindImage
		ev.ContentID = we.Message.ID
	}
	return ev
}
