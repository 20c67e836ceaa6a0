package ticket

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/bus-tour-reservation/internal/model"
)

var (
	// ErrRenderingUnavailable means the PDF backend could not produce a
	// document.
	ErrRenderingUnavailable = errors.New("ticket rendering unavailable")
	// ErrDocumentTooSmall means the produced file was implausibly small
	// even after a retry.
	ErrDocumentTooSmall = errors.New("ticket document too small")
)

// MinDocumentSize is the smallest output accepted as a real ticket.
const MinDocumentSize = 1000

// Engine opens a blank document.
type Engine func(meta Meta) (Document, error)

// Renderer turns reservations into ticket files in a TempStore.
type Renderer struct {
	store  *TempStore
	footer FooterSource
	engine Engine
	logger *zap.Logger
	loc    *time.Location
}

// NewRenderer wires a renderer. footer may be nil.
func NewRenderer(store *TempStore, footer FooterSource, engine Engine, logger *zap.Logger, loc *time.Location) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{store: store, footer: footer, engine: engine, logger: logger, loc: loc}
}

// Render draws the ticket for res and writes it to the temp store,
// returning the file path. The caller removes the file when done.
func (r *Renderer) Render(ctx context.Context, res *model.Reservation, opts Options) (string, error) {
	data, err := r.RenderBytes(ctx, res, opts)
	if err != nil {
		return "", err
	}

	path, err := r.store.Create("billete", res.Locator, "pdf", data)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() < MinDocumentSize {
		_ = r.store.Remove(path)
		return "", fmt.Errorf("%w: %s", ErrDocumentTooSmall, res.Locator)
	}

	r.logger.Info("ticket rendered",
		zap.String("localizador", res.Locator),
		zap.Bool("hide_prices", opts.HidePrices),
		zap.Int64("bytes", info.Size()),
	)
	return path, nil
}

// RenderBytes produces the document in memory.
func (r *Renderer) RenderBytes(ctx context.Context, res *model.Reservation, opts Options) ([]byte, error) {
	t, err := NewTicket(res, opts, r.loc)
	if err != nil {
		return nil, err
	}
	if r.engine == nil {
		return nil, ErrRenderingUnavailable
	}

	footer := r.fetchFooter(ctx, res.Locator)

	var out []byte
	for attempt := 1; attempt <= 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err = r.draw(t, footer)
		if err != nil {
			return nil, err
		}
		if len(out) >= MinDocumentSize {
			return out, nil
		}
		r.logger.Warn("ticket output too small",
			zap.String("localizador", res.Locator),
			zap.Int("bytes", len(out)),
			zap.Int("attempt", attempt),
		)
	}
	return nil, fmt.Errorf("%w: %s (%d bytes)", ErrDocumentTooSmall, res.Locator, len(out))
}

func (r *Renderer) draw(t Ticket, footer *Image) ([]byte, error) {
	doc, err := r.engine(Meta{
		Title:   "Billete " + t.Locator,
		Subject: "Billete de autobús " + t.Product,
	})
	if err != nil {
		if errors.Is(err, ErrRenderingUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrRenderingUnavailable, err)
	}
	if doc == nil {
		return nil, ErrRenderingUnavailable
	}

	if err := Draw(doc, t, footer); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderingUnavailable, err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) fetchFooter(ctx context.Context, locator string) *Image {
	if r.footer == nil {
		return nil
	}
	img, err := r.footer.Fetch(ctx)
	if err != nil {
		if !errors.Is(err, errNoFooter) {
			r.logger.Warn("footer image skipped", zap.String("localizador", locator), zap.Error(err))
		}
		return nil
	}
	return img
}
