package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/bus-tour-reservation/internal/model"
	"github.com/iliyamo/bus-tour-reservation/internal/ticket"
)

// ReservationLoader loads confirmed reservations by locator.
type ReservationLoader interface {
	GetByLocator(ctx context.Context, locator string) (*model.Reservation, error)
}

// TicketRenderer writes a ticket file and returns its path.
type TicketRenderer interface {
	Render(ctx context.Context, res *model.Reservation, opts ticket.Options) (string, error)
}

// TicketSender e-mails a rendered ticket.
type TicketSender interface {
	SendTicket(ctx context.Context, res *model.Reservation, path string) error
}

// FileRemover deletes temporary ticket files.
type FileRemover interface {
	Remove(path string) error
}

// TicketDelivery renders and e-mails the ticket of a confirmed
// reservation. Its Handle method is a Handler.
type TicketDelivery struct {
	Reservations ReservationLoader
	Renderer     TicketRenderer
	Sender       TicketSender
	Files        FileRemover
	Logger       *zap.Logger
	Timeout      time.Duration
}

// Handle delivers the ticket for ev. The temp file is removed whether or
// not sending succeeded.
func (d *TicketDelivery) Handle(ctx context.Context, ev ReservationConfirmedEvent) error {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	res, err := d.Reservations.GetByLocator(ctx, ev.Locator)
	if err != nil {
		return fmt.Errorf("load reservation %s: %w", ev.Locator, err)
	}
	path, err := d.Renderer.Render(ctx, res, ticket.Options{})
	if err != nil {
		return fmt.Errorf("render ticket %s: %w", ev.Locator, err)
	}
	defer func() {
		if err := d.Files.Remove(path); err != nil {
			logger.Warn("temp ticket not removed", zap.String("path", path), zap.Error(err))
		}
	}()

	if err := d.Sender.SendTicket(ctx, res, path); err != nil {
		return fmt.Errorf("send ticket %s: %w", ev.Locator, err)
	}
	logger.Info("ticket delivered", zap.String("localizador", ev.Locator), zap.Uint64("reserva_id", ev.ReservationID))
	return nil
}
