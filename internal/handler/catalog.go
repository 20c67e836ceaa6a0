package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/bus-tour-reservation/internal/model"
	"github.com/iliyamo/bus-tour-reservation/internal/repository"
)

// CatalogHandler serves the public, cacheable booking data: settings and
// the monthly service calendar.
type CatalogHandler struct {
	Services *repository.ServiceRepo
	Config   *repository.ConfigRepo
	Loc      *time.Location
	Now      func() time.Time
	Logger   *zap.Logger
}

func (h *CatalogHandler) now() time.Time {
	loc := h.Loc
	if loc == nil {
		loc = time.UTC
	}
	if h.Now != nil {
		return h.Now().In(loc)
	}
	return time.Now().In(loc)
}

type publicPrices struct {
	Adult    money `json:"adulto"`
	Child    money `json:"nino"`
	Resident money `json:"residente"`
}

type publicConfig struct {
	Prices         publicPrices `json:"precios_defecto"`
	MinAdvanceDays int          `json:"dias_anticipacion_minima"`
	Currency       string       `json:"moneda"`
	CurrencySymbol string       `json:"simbolo_moneda"`
	Timezone       string       `json:"zona_horaria"`
}

// Configuration handles GET /v1/configuration. Only the settings the
// booking form needs are exposed; counters and mail settings stay private.
func (h *CatalogHandler) Configuration(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Config.All(ctx)
	if err != nil {
		logFrom(h.Logger).Error("load configuration", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, publicConfig{
		Prices: publicPrices{
			Adult:    money(s.Decimal(model.ConfigDefaultAdultPrice, decimal.NewFromInt(10))),
			Child:    money(s.Decimal(model.ConfigDefaultChildPrice, decimal.NewFromInt(5))),
			Resident: money(s.Decimal(model.ConfigDefaultResidentPrice, decimal.NewFromInt(5))),
		},
		MinAdvanceDays: s.Int(model.ConfigMinAdvanceDays, 0),
		Currency:       s.String(model.ConfigCurrency, "EUR"),
		CurrencySymbol: s.String(model.ConfigCurrencySymbol, "€"),
		Timezone:       s.String(model.ConfigTimezone, "Europe/Madrid"),
	})
}

type serviceSlot struct {
	ID                 uint64 `json:"id"`
	DepartureTime      string `json:"hora"`
	ReturnTime         string `json:"hora_vuelta"`
	AvailableSeats     int    `json:"plazas_disponibles"`
	PriceAdult         money  `json:"precio_adulto"`
	PriceChild         money  `json:"precio_nino"`
	PriceResident      money  `json:"precio_residente"`
	HasDiscount        bool   `json:"tiene_descuento"`
	DiscountPercentage money  `json:"porcentaje_descuento"`
	DiscountMode       string `json:"descuento_tipo"`
	DiscountMinPersons int    `json:"descuento_minimo_personas"`
}

// ListServices handles GET /v1/services?year=&month=. It returns the bookable
// services of the month keyed by date. Today's services are listed only
// while their departure is still ahead; later days must be at least the
// configured number of advance days away.
func (h *CatalogHandler) ListServices(c echo.Context) error {
	now := h.now()
	year, month := now.Year(), int(now.Month())
	if v := c.QueryParam("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 2000 || n > 2100 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid year"})
		}
		year = n
	}
	if v := c.QueryParam("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 12 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid month"})
		}
		month = n
	}

	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1)

	calendar := map[string][]serviceSlot{}
	if last.Before(today) {
		return c.JSON(http.StatusOK, echo.Map{"year": year, "month": month, "calendar": calendar})
	}
	from := first
	if from.Before(today) {
		from = today
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	settings, err := h.Config.All(ctx)
	if err != nil {
		logFrom(h.Logger).Error("load configuration", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	advance := settings.Int(model.ConfigMinAdvanceDays, 0)

	services, err := h.Services.ListBookable(ctx, from, last)
	if err != nil {
		logFrom(h.Logger).Error("list services", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	todayKey := today.Format("2006-01-02")
	minFuture := today.AddDate(0, 0, advance).Format("2006-01-02")
	for i := range services {
		svc := &services[i]
		day := svc.Date.Format("2006-01-02")
		switch {
		case day < todayKey:
			continue
		case day == todayKey:
			departs, err := svc.DepartsAt(loc)
			if err != nil || !departs.After(now) {
				continue
			}
		case advance > 0 && day < minFuture:
			continue
		}
		calendar[day] = append(calendar[day], toSlot(svc))
	}
	return c.JSON(http.StatusOK, echo.Map{"year": year, "month": month, "calendar": calendar})
}

func toSlot(s *model.Service) serviceSlot {
	mode := s.Discount.Mode
	if mode == "" {
		mode = model.DiscountModeFlat
	}
	minPersons := s.Discount.MinimumPersons
	if minPersons <= 0 {
		minPersons = 1
	}
	return serviceSlot{
		ID:                 s.ID,
		DepartureTime:      model.ShortClock(s.DepartureTime),
		ReturnTime:         shortOrEmpty(s.ReturnTime),
		AvailableSeats:     s.AvailableSeats,
		PriceAdult:         money(s.PriceAdult),
		PriceChild:         money(s.PriceChild),
		PriceResident:      money(s.PriceResident),
		HasDiscount:        s.Discount.Enabled,
		DiscountPercentage: money(s.Discount.Percentage),
		DiscountMode:       mode,
		DiscountMinPersons: minPersons,
	}
}

func shortOrEmpty(v string) string {
	if v == "" {
		return ""
	}
	return model.ShortClock(v)
}
