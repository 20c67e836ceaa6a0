package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/bus-tour-reservation/internal/middleware"
	"github.com/iliyamo/bus-tour-reservation/internal/model"
	"github.com/iliyamo/bus-tour-reservation/internal/pricing"
	"github.com/iliyamo/bus-tour-reservation/internal/queue"
	"github.com/iliyamo/bus-tour-reservation/internal/repository"
)

// recentWindow bounds how old the reservation returned by Recent may be.
const recentWindow = 10 * time.Minute

// EventPublisher announces committed reservations.
type EventPublisher interface {
	PublishReservationConfirmed(ctx context.Context, ev queue.ReservationConfirmedEvent) error
}

// ReservationHandler creates and looks up reservations. Creation runs in
// a single transaction that locks the service row, so the seat check,
// the decrement and the locator assignment cannot interleave with another
// booking of the same service.
type ReservationHandler struct {
	DB           *sql.DB
	Services     *repository.ServiceRepo
	Rules        *repository.DiscountRuleRepo
	Locators     *repository.LocatorRepo
	Reservations *repository.ReservationRepo
	Calc         *pricing.Calculator
	Publisher    EventPublisher // optional
	Logger       *zap.Logger
	Loc          *time.Location
	Now          func() time.Time
}

func (h *ReservationHandler) now() time.Time {
	loc := h.Loc
	if loc == nil {
		loc = time.UTC
	}
	if h.Now != nil {
		return h.Now().In(loc)
	}
	return time.Now().In(loc)
}

type reservationReq struct {
	priceReq
	FirstName string `json:"nombre" validate:"required,max=100"`
	LastName  string `json:"apellidos" validate:"required,max=150"`
	Email     string `json:"email" validate:"required,email,max=100"`
	Phone     string `json:"telefono" validate:"required,min=6,max=20"`
}

func (r *reservationReq) normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
}

type reservationDetails struct {
	Date       string `json:"fecha"`
	Time       string `json:"hora"`
	Travelers  int    `json:"personas"`
	FinalPrice money  `json:"precio_final"`
}

type reservationSummary struct {
	Locator string             `json:"localizador"`
	ID      uint64             `json:"reserva_id"`
	Details reservationDetails `json:"detalles"`
}

func summarize(res *model.Reservation) reservationSummary {
	return reservationSummary{
		Locator: res.Locator,
		ID:      res.ID,
		Details: reservationDetails{
			Date:       res.VisitDate.Format("2006-01-02"),
			Time:       model.ShortClock(res.DepartureTime),
			Travelers:  res.TotalTravelers,
			FinalPrice: money(res.FinalPrice),
		},
	}
}

// Create handles POST /v1/reservations. The price is always recomputed
// server-side and frozen into the stored row.
func (h *ReservationHandler) Create(c echo.Context) error {
	logger := logFrom(h.Logger)

	var req reservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.normalize()
	if err := validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err)})
	}
	t := req.travelers()
	if t.PayingSeats() == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "debe haber al menos un viajero con plaza"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()
	now := h.now()

	rules, err := h.Rules.ListActive(ctx)
	if err != nil {
		logger.Error("load discount rules", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("begin reservation tx", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	svc, err := h.Services.GetForUpdateTx(ctx, tx, req.ServiceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "servicio no encontrado"})
		}
		logger.Error("lock service", zap.Uint64("service_id", req.ServiceID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !svc.Bookable() {
		return c.JSON(http.StatusConflict, echo.Map{"error": "servicio no disponible"})
	}
	if departs, err := svc.DepartsAt(now.Location()); err != nil || !departs.After(now) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "el servicio ya ha salido"})
	}
	if svc.AvailableSeats < t.PayingSeats() {
		return c.JSON(http.StatusConflict, echo.Map{"error": "no hay plazas suficientes"})
	}

	b, err := h.Calc.Calculate(svc, pricing.NewResolver(rules), t)
	if err != nil {
		status, msg, expected := pricingStatus(err)
		if !expected || status == http.StatusConflict {
			logger.Warn("reservation pricing rejected", zap.Uint64("service_id", svc.ID), zap.Error(err))
		}
		return c.JSON(status, echo.Map{"error": msg})
	}

	if err := h.Services.DecrementSeatsTx(ctx, tx, svc.ID, t.PayingSeats()); err != nil {
		if errors.Is(err, repository.ErrSoldOut) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "no hay plazas suficientes"})
		}
		logger.Error("decrement seats", zap.Uint64("service_id", svc.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	locator, err := h.Locators.NextTx(ctx, tx, now)
	if err != nil {
		logger.Error("assign locator", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	res := &model.Reservation{
		Locator:        locator,
		ServiceID:      svc.ID,
		VisitDate:      svc.Date,
		DepartureTime:  svc.DepartureTime,
		ReturnTime:     svc.ReturnTime,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Phone:          req.Phone,
		Adults:         t.Adults,
		Residents:      t.Residents,
		Children5to12:  t.Children5to12,
		ChildrenUnder5: t.ChildrenUnder5,
		TotalTravelers: t.Total(),
		PriceAdult:     svc.PriceAdult,
		PriceChild:     svc.PriceChild,
		PriceResident:  svc.PriceResident,
		BasePrice:      b.BasePrice,
		TotalDiscount:  b.AllDiscounts(),
		FinalPrice:     b.Total,
		AppliedRule:    b.AppliedRule,
		Status:         model.ReservationConfirmed,
		PaymentMethod:  model.PaymentDirect,
	}
	if agencyID, ok := middleware.AgencyID(c); ok {
		res.AgencyID = &agencyID
	}

	if err := h.Reservations.CreateTx(ctx, tx, res); err != nil {
		logger.Error("insert reservation", zap.String("localizador", locator), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := tx.Commit(); err != nil {
		logger.Error("commit reservation", zap.String("localizador", locator), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	committed = true

	logger.Info("reservation confirmed",
		zap.String("localizador", res.Locator),
		zap.Uint64("reserva_id", res.ID),
		zap.Uint64("service_id", svc.ID),
		zap.Int("personas", res.TotalTravelers))

	// the booking stands even when the broker is down
	if h.Publisher != nil {
		if err := h.Publisher.PublishReservationConfirmed(ctx, queue.NewReservationConfirmed(res)); err != nil {
			logger.Warn("reservation event not published", zap.String("localizador", res.Locator), zap.Error(err))
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"localizador": res.Locator,
		"reserva_id":  res.ID,
		"detalles":    summarize(res).Details,
		"precio":      newPriceResp(b),
	})
}

// Get handles GET /v1/reservations/:localizador.
func (h *ReservationHandler) Get(c echo.Context) error {
	locator, ok := locatorParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "localizador no válido"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Reservations.GetByLocator(ctx, locator)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reserva no encontrada"})
		}
		logFrom(h.Logger).Error("load reservation", zap.String("localizador", locator), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, summarize(res))
}

// Recent handles GET /v1/reservations/recent: the latest confirmed
// reservation, provided it was made within the last ten minutes.
func (h *ReservationHandler) Recent(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Reservations.MostRecentConfirmed(ctx)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		logFrom(h.Logger).Error("load recent reservation", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if res == nil || h.now().Sub(res.CreatedAt) > recentWindow {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no hay reservas recientes"})
	}
	return c.JSON(http.StatusOK, summarize(res))
}
