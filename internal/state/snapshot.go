package state

import (
	"encoding/json"
	"fmt"
	"strconv"
)

const CurrentSnapshotVersion = 3

type snapshotHeader struct {
	Version int `json:"version"`
}

// v1 mirrored the channel layout: one chat, one message, one uploaded image.
type snapshotV1 struct {
	Version         int                    `json:"version"`
	PublishedOffers map[string]publishedV1 `json:"publishedOffers"`
}

type publishedV1 struct {
	ChatID    string `json:"chatId"`
	MessageID *int64 `json:"messageId"`
	ImageID   string `json:"imageId"`
}

// v2 added key rotation to v1 records.
type snapshotV2 struct {
	Version         int                    `json:"version"`
	PublishedOffers map[string]publishedV2 `json:"publishedOffers"`
}

type publishedV2 struct {
	ChatID    string   `json:"chatId"`
	MessageID *int64   `json:"messageId"`
	ImageID   string   `json:"imageId"`
	AuthKeys  []string `json:"authKeys"`
}

type snapshotV3 struct {
	Version  int                         `json:"version"`
	Messages map[string]PublishedMessage `json:"messages"`
}

type upgradeFunc func(data []byte) ([]byte, error)

// upgrades[v] turns a version v document into a version v+1 document.
var upgrades = map[int]upgradeFunc{
	1: upgradeV1,
	2: upgradeV2,
}

func upgradeV1(data []byte) ([]byte, error) {
	var in snapshotV1
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode v1 snapshot: %w", err)
	}

	out := snapshotV2{Version: 2, PublishedOffers: make(map[string]publishedV2, len(in.PublishedOffers))}
	for id, p := range in.PublishedOffers {
		out.PublishedOffers[id] = publishedV2{
			ChatID:    p.ChatID,
			MessageID: p.MessageID,
			ImageID:   p.ImageID,
			AuthKeys:  []string{},
		}
	}
	return json.Marshal(out)
}

// upgradeV2 drops chat and image ids. Text starts empty, so the next run refreshes every message.
func upgradeV2(data []byte) ([]byte, error) {
	var in snapshotV2
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode v2 snapshot: %w", err)
	}

	out := snapshotV3{Version: 3, Messages: make(map[string]PublishedMessage, len(in.PublishedOffers))}
	for id, p := range in.PublishedOffers {
		keys := p.AuthKeys
		if keys == nil {
			keys = []string{}
		}
		out.Messages[id] = PublishedMessage{MessageID: p.MessageID, AuthKeys: keys}
	}
	return json.Marshal(out)
}

func decodeSnapshot(data []byte) (map[int64]PublishedMessage, error) {
	var h snapshotHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decode snapshot header: %w", err)
	}

	if h.Version < 1 || h.Version > CurrentSnapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSnapshotVersion, h.Version)
	}

	for v := h.Version; v < CurrentSnapshotVersion; v++ {
		up, ok := upgrades[v]
		if !ok {
			return nil, fmt.Errorf("%w: no upgrade from %d", ErrUnsupportedSnapshotVersion, v)
		}
		var err error
		if data, err = up(data); err != nil {
			return nil, err
		}
	}

	var snap snapshotV3
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	out := make(map[int64]PublishedMessage, len(snap.Messages))
	for k, m := range snap.Messages {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode snapshot: bad offer id %q", k)
		}
		if m.AuthKeys == nil {
			m.AuthKeys = []string{}
		}
		out[id] = m
	}
	return out, nil
}

func encodeSnapshot(messages map[int64]PublishedMessage) ([]byte, error) {
	snap := snapshotV3{
		Version:  CurrentSnapshotVersion,
		Messages: make(map[string]PublishedMessage, len(messages)),
	}
	for id, m := range messages {
		if m.AuthKeys == nil {
			m.AuthKeys = []string{}
		}
		snap.Messages[strconv.FormatInt(id, 10)] = m
	}
	return json.MarshalIndent(snap, "", "  ")
}
