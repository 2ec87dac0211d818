package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func photoServer(t *testing.T, hits *int) *httptest.Server {
	t.Helper()

	src := image.NewRGBA(image.Rect(0, 0, 30, 20))
	for x := 0; x < 30; x++ {
		for y := 0; y < 20; y++ {
			src.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("encode: %v", err)
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	}))
}

func TestImageComposer_ComposesAndCachesPhoto(t *testing.T) {
	hits := 0
	srv := photoServer(t, &hits)
	defer srv.Close()

	dir := t.TempDir()
	c := NewImageComposer(srv.Client(), filepath.Join(dir, "{file}"), "https://cdn.example/{file}")

	o := testOffer()
	o.Image = srv.URL + "/p.png"

	url, err := c.ImageURL(context.Background(), o)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if url != "https://cdn.example/10.png" {
		t.Fatalf("unexpected url %s", url)
	}

	f, err := os.Open(filepath.Join(dir, "10.png"))
	if err != nil {
		t.Fatalf("open composed image: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode composed image: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 1260 || b.Dy() != 510 {
		t.Fatalf("unexpected size %v", b)
	}
	if r, _, _, _ := img.At(1000, 200).RGBA(); r>>8 < 150 {
		t.Fatalf("expected product photo on the right side")
	}

	o.ID = 11
	o.Normal.Code = "OTHER"
	if _, err := c.ImageURL(context.Background(), o); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected photo fetched once, got %d", hits)
	}

	c.Reset()
	if _, err := c.Compose(context.Background(), o); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if hits != 2 {
		t.Fatalf("expected refetch after reset, got %d", hits)
	}
}

func TestImageComposer_PhotoFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewImageComposer(srv.Client(), filepath.Join(t.TempDir(), "{file}"), "{file}")
	o := testOffer()
	o.Image = srv.URL

	if _, err := c.Compose(context.Background(), o); err == nil {
		t.Fatalf("expected error for missing photo")
	}
}
