package ticket

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// maxFooterBytes caps the downloaded footer image.
const maxFooterBytes = 4 << 20

var errNoFooter = errors.New("footer image not configured")

// FooterSource supplies the optional image printed above the barcode.
type FooterSource interface {
	Fetch(ctx context.Context) (*Image, error)
}

// HTTPFooter downloads the footer image from a fixed URL.
type HTTPFooter struct {
	URL    string
	Client *http.Client
}

// NewHTTPFooter returns a FooterSource for url. An empty url yields a
// source that always fails, which the renderer treats as "no footer".
func NewHTTPFooter(url string, timeout time.Duration) *HTTPFooter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPFooter{
		URL:    strings.TrimSpace(url),
		Client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads and decodes the image header, retrying once.
func (f *HTTPFooter) Fetch(ctx context.Context) (*Image, error) {
	if f == nil || f.URL == "" {
		return nil, errNoFooter
	}

	var data []byte
	op := func() error {
		b, err := f.get(ctx)
		if err != nil {
			return err
		}
		data = b
		return nil
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(200*time.Millisecond), 1), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, fmt.Errorf("fetch footer image: %w", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode footer image: %w", err)
	}
	typ, err := imageType(format)
	if err != nil {
		return nil, err
	}
	return &Image{
		Name:   "footer",
		Type:   typ,
		Data:   data,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

func (f *HTTPFooter) get(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxFooterBytes+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxFooterBytes {
		return nil, backoff.Permanent(fmt.Errorf("footer image larger than %d bytes", maxFooterBytes))
	}
	if len(b) == 0 {
		return nil, errors.New("empty footer image")
	}
	return b, nil
}

func imageType(format string) (string, error) {
	switch format {
	case "png":
		return "PNG", nil
	case "jpeg":
		return "JPG", nil
	case "gif":
		return "GIF", nil
	}
	return "", fmt.Errorf("unsupported footer image format %q", format)
}
