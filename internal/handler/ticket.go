package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/bus-tour-reservation/internal/middleware"
	"github.com/iliyamo/bus-tour-reservation/internal/model"
	"github.com/iliyamo/bus-tour-reservation/internal/repository"
	"github.com/iliyamo/bus-tour-reservation/internal/ticket"
)

const msgTicketUnavailable = "No se pudo generar el billete. Inténtelo de nuevo o contacte con soporte."

// TicketRenderer produces a ticket document in memory.
type TicketRenderer interface {
	RenderBytes(ctx context.Context, res *model.Reservation, opts ticket.Options) ([]byte, error)
}

// TicketHandler streams ticket PDFs.
type TicketHandler struct {
	Reservations *repository.ReservationRepo
	Renderer     TicketRenderer
	Logger       *zap.Logger
}

// Download handles GET /v1/tickets/:localizador. mode=download sends the
// file as an attachment; anything else displays it inline.
func (h *TicketHandler) Download(c echo.Context) error {
	locator, ok := locatorParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "localizador no válido"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	res, err := h.Reservations.GetByLocator(ctx, locator)
	if err != nil {
		return h.loadFailed(c, locator, err)
	}
	return h.send(c, ctx, res, ticket.Options{}, c.QueryParam("mode") == "download")
}

// AgencyTicket handles GET /v1/agency/reservations/:localizador/ticket.
// Agencies only see their own reservations, and their copy hides prices.
// Administrators may pass hide_prices=false to get the consumer version.
func (h *TicketHandler) AgencyTicket(c echo.Context) error {
	locator, ok := locatorParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "localizador no válido"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	res, err := h.Reservations.GetByLocator(ctx, locator)
	if err != nil {
		return h.loadFailed(c, locator, err)
	}
	if err := authorizeAgency(c, res); err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	opts := ticket.Options{HidePrices: true, AgencyCopy: true}
	if middleware.Role(c) != model.RoleAgency {
		if v, err := strconv.ParseBool(c.QueryParam("hide_prices")); err == nil {
			opts.HidePrices = v
		}
	}
	return h.send(c, ctx, res, opts, c.QueryParam("mode") == "download")
}

// authorizeAgency rejects agency accounts asking for another agency's
// reservation.
func authorizeAgency(c echo.Context, res *model.Reservation) error {
	if middleware.Role(c) != model.RoleAgency {
		return nil
	}
	agencyID, ok := middleware.AgencyID(c)
	if !ok || res.AgencyID == nil || *res.AgencyID != agencyID {
		return repository.ErrForbidden
	}
	return nil
}

func (h *TicketHandler) loadFailed(c echo.Context, locator string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reserva no encontrada"})
	}
	logFrom(h.Logger).Error("load reservation for ticket", zap.String("localizador", locator), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}

func (h *TicketHandler) send(c echo.Context, ctx context.Context, res *model.Reservation, opts ticket.Options, attachment bool) error {
	data, err := h.Renderer.RenderBytes(ctx, res, opts)
	if err != nil {
		if errors.Is(err, ticket.ErrInvalidReservation) {
			logFrom(h.Logger).Warn("ticket refused", zap.String("localizador", res.Locator), zap.Error(err))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "la reserva no permite emitir billete"})
		}
		logFrom(h.Logger).Error("render ticket",
			zap.String("localizador", res.Locator),
			zap.Bool("hide_prices", opts.HidePrices),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": msgTicketUnavailable})
	}

	disposition := "inline"
	if attachment {
		disposition = "attachment"
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("%s; filename=%q", disposition, "billete_"+res.Locator+".pdf"))
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, "application/pdf", data)
}
