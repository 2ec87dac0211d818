package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/ETAnderson/offersync/internal/atomicfile"
	"github.com/ETAnderson/offersync/internal/domain"
)

const (
	qrSize       = 510
	photoWidth   = 750
	composedW    = qrSize + photoWidth
	composedH    = qrSize
	fileVariable = "{file}"
)

// ImageComposer draws the redemption QR code next to the product photo,
// writes the PNG under Folder and links it through URL.
type ImageComposer struct {
	HTTP   *http.Client
	Folder string // path pattern containing {file}
	URL    string // public URL pattern containing {file}

	mu     sync.Mutex
	photos map[string]image.Image
}

func NewImageComposer(httpClient *http.Client, folder string, url string) *ImageComposer {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ImageComposer{
		HTTP:   httpClient,
		Folder: folder,
		URL:    url,
		photos: make(map[string]image.Image),
	}
}

// Reset forgets the scaled photos fetched so far.
func (c *ImageComposer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.photos = make(map[string]image.Image)
}

func (c *ImageComposer) ImageURL(ctx context.Context, o domain.Offer) (string, error) {
	img, err := c.Compose(ctx, o)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}

	file := strconv.FormatInt(o.ID, 10) + ".png"
	if err := atomicfile.Write(strings.ReplaceAll(c.Folder, fileVariable, file), buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}

	return strings.ReplaceAll(c.URL, fileVariable, file), nil
}

// Compose returns the 1260x510 image for o.
func (c *ImageComposer) Compose(ctx context.Context, o domain.Offer) (image.Image, error) {
	q, err := qrcode.New(o.Normal.Code, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("qr code: %w", err)
	}

	photo, err := c.photo(ctx, o.Image)
	if err != nil {
		return nil, err
	}

	out := image.NewRGBA(image.Rect(0, 0, composedW, composedH))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(0, 0, qrSize, qrSize), q.Image(qrSize), image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(qrSize, 0, composedW, composedH), photo, image.Point{}, draw.Over)

	return out, nil
}

func (c *ImageComposer) photo(ctx context.Context, url string) (image.Image, error) {
	c.mu.Lock()
	cached, ok := c.photos[url]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch product image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch product image: status %d", resp.StatusCode)
	}

	src, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode product image: %w", err)
	}

	scaled := image.NewRGBA(image.Rect(0, 0, photoWidth, composedH))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Src, nil)

	c.mu.Lock()
	c.photos[url] = scaled
	c.mu.Unlock()

	return scaled, nil
}
