package state

import (
	"context"
	"errors"
	"testing"
)

func TestLoad_UpgradesV1(t *testing.T) {
	b := NewMemoryBackend()
	_ = b.Save(context.Background(), []byte(`{
		"version": 1,
		"publishedOffers": {
			"10": {"chatId": "@offers", "messageId": 555, "imageId": "img"},
			"11": {"chatId": "@offers", "messageId": null, "imageId": ""}
		}
	}`))

	s, err := Load(context.Background(), b)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	m, ok := s.Get(10)
	if !ok || m.MessageID == nil || *m.MessageID != 555 {
		t.Fatalf("unexpected record: %+v", m)
	}
	if m.AuthKeys == nil || len(m.AuthKeys) != 0 || m.Text != "" {
		t.Fatalf("expected empty keys and text, got %+v", m)
	}

	if m, _ := s.Get(11); m.MessageID != nil {
		t.Fatalf("expected nil message id, got %v", *m.MessageID)
	}
	if s.Modified() {
		t.Fatalf("loading must not mark the store modified")
	}
}

func TestLoad_UpgradesV2(t *testing.T) {
	b := NewMemoryBackend()
	_ = b.Save(context.Background(), []byte(`{
		"version": 2,
		"publishedOffers": {
			"10": {"chatId": "@offers", "messageId": 555, "imageId": "img", "authKeys": ["a", "b"]}
		}
	}`))

	s, err := Load(context.Background(), b)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	m, _ := s.Get(10)
	if len(m.AuthKeys) != 2 || m.LatestKey() != "b" {
		t.Fatalf("expected keys carried over, got %v", m.AuthKeys)
	}
}

func TestLoad_RejectsUnknownVersion(t *testing.T) {
	for _, doc := range []string{`{"version": 4, "messages": {}}`, `{"messages": {}}`} {
		b := NewMemoryBackend()
		_ = b.Save(context.Background(), []byte(doc))

		_, err := Load(context.Background(), b)
		if !errors.Is(err, ErrUnsupportedSnapshotVersion) {
			t.Fatalf("expected ErrUnsupportedSnapshotVersion for %s, got %v", doc, err)
		}
	}
}

func TestLoad_RejectsBadOfferID(t *testing.T) {
	b := NewMemoryBackend()
	_ = b.Save(context.Background(), []byte(`{"version": 3, "messages": {"abc": {"messageId": 1, "text": "", "authKeys": []}}}`))

	if _, err := Load(context.Background(), b); err == nil {
		t.Fatalf("expected error for non-numeric offer id")
	}
}

func TestEncodeSnapshot_WritesCurrentVersion(t *testing.T) {
	data, err := encodeSnapshot(map[int64]PublishedMessage{1: {}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	messages, err := decodeSnapshot(data)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if m := messages[1]; m.AuthKeys == nil {
		t.Fatalf("expected authKeys to encode as an empty list")
	}
}
