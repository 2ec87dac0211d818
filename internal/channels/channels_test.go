package channels

import (
	"context"
	"testing"
)

type namedPublisher struct{ name string }

func (p namedPublisher) Name() string { return p.name }
func (p namedPublisher) Create(context.Context, string, Markup, bool) (Response, error) {
	return Response{OK: true}, nil
}
func (p namedPublisher) UpdateText(context.Context, int64, string, Markup) (Response, error) {
	return Response{OK: true}, nil
}
func (p namedPublisher) UpdateMarkup(context.Context, int64, Markup) (Response, error) {
	return Response{OK: true}, nil
}
func (p namedPublisher) Delete(context.Context, int64) (Response, error) {
	return Response{OK: true}, nil
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry(namedPublisher{name: "telegram"}, nil, namedPublisher{name: "dryrun"})

	if _, ok := r.Get("telegram"); !ok {
		t.Fatalf("expected telegram registered")
	}
	if _, ok := r.Get("dryrun"); !ok {
		t.Fatalf("expected dryrun registered")
	}
	if _, ok := r.Get("slack"); ok {
		t.Fatalf("expected unknown publisher missing")
	}

	var zero Registry
	if _, ok := zero.Get("telegram"); ok {
		t.Fatalf("expected zero registry to be empty")
	}
}

func TestResponse_Classification(t *testing.T) {
	if !(Response{Description: DescriptionNotModified}).NotModified() {
		t.Fatalf("expected not modified")
	}
	if !(Response{Description: DescriptionEditNotFound}).NotFound() {
		t.Fatalf("expected edit not found")
	}
	if !(Response{Description: DescriptionDeleteNotFound}).NotFound() {
		t.Fatalf("expected delete not found")
	}
	if (Response{OK: true, Description: DescriptionNotModified}).NotModified() {
		t.Fatalf("successful response is never 'not modified'")
	}
	if (Response{Description: "Forbidden: bot was blocked"}).NotFound() {
		t.Fatalf("unexpected not found")
	}
}
