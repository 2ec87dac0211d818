package state

import (
	"context"
	"errors"
)

// ErrUnsupportedSnapshotVersion is returned when a snapshot was written by an unknown format version.
var ErrUnsupportedSnapshotVersion = errors.New("unsupported snapshot version")

// PublishedMessage is what the channel currently shows for one offer.
type PublishedMessage struct {
	// MessageID is nil until the offer is published, and again once the message is lost.
	MessageID *int64   `json:"messageId"`
	Text      string   `json:"text"`
	AuthKeys  []string `json:"authKeys"`
}

// LatestKey returns the most recently issued key, or "" when none was issued.
func (m PublishedMessage) LatestKey() string {
	if len(m.AuthKeys) == 0 {
		return ""
	}
	return m.AuthKeys[len(m.AuthKeys)-1]
}

func (m PublishedMessage) clone() PublishedMessage {
	out := m
	if m.MessageID != nil {
		id := *m.MessageID
		out.MessageID = &id
	}
	out.AuthKeys = make([]string, len(m.AuthKeys))
	copy(out.AuthKeys, m.AuthKeys)
	return out
}

// Backend stores the encoded snapshot as one opaque document.
type Backend interface {
	// Load returns ok=false when nothing was saved yet.
	Load(ctx context.Context) (data []byte, ok bool, err error)
	Save(ctx context.Context, data []byte) error
}
