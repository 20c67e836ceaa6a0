package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/bus-tour-reservation/internal/model"
	"github.com/iliyamo/bus-tour-reservation/internal/pricing"
	"github.com/iliyamo/bus-tour-reservation/internal/repository"
)

// PriceHandler serves price quotes.
type PriceHandler struct {
	Services *repository.ServiceRepo
	Rules    *repository.DiscountRuleRepo
	Calc     *pricing.Calculator
	Logger   *zap.Logger
}

type priceReq struct {
	ServiceID      uint64 `json:"service_id" validate:"required"`
	Adults         int    `json:"adultos" validate:"min=0"`
	Residents      int    `json:"residentes" validate:"min=0"`
	Children5to12  int    `json:"ninos_5_12" validate:"min=0"`
	ChildrenUnder5 int    `json:"ninos_menores" validate:"min=0"`
}

func (r priceReq) travelers() pricing.Travelers {
	return pricing.Travelers{
		Adults:         r.Adults,
		Residents:      r.Residents,
		Children5to12:  r.Children5to12,
		ChildrenUnder5: r.ChildrenUnder5,
	}
}

type serviceDiscountResp struct {
	Enabled        bool   `json:"tiene_descuento"`
	Percentage     money  `json:"porcentaje_descuento"`
	Mode           string `json:"descuento_tipo"`
	MinimumPersons int    `json:"descuento_minimo_personas"`
	Accumulable    bool   `json:"descuento_acumulable"`
	Priority       string `json:"descuento_prioridad"`
	Applied        bool   `json:"descuento_aplicado"`
}

type priceDebug struct {
	Adults           int    `json:"adultos"`
	Residents        int    `json:"residentes"`
	Children5to12    int    `json:"ninos_5_12"`
	ChildrenUnder5   int    `json:"ninos_menores"`
	PayingSeats      int    `json:"total_personas_con_plaza"`
	Base             money  `json:"precio_base_calculado"`
	Subtotal         money  `json:"subtotal"`
	GroupCandidate   money  `json:"descuento_grupo_calculado"`
	ServiceCandidate money  `json:"descuento_servicio_calculado"`
	GroupApplied     money  `json:"descuento_grupo_aplicado"`
	ServiceApplied   money  `json:"descuento_servicio_aplicado"`
	Accumulable      bool   `json:"es_acumulable"`
	Priority         string `json:"prioridad"`
	Outcome          string `json:"resultado"`
}

type priceResp struct {
	BasePrice        money               `json:"precio_base"`
	Discount         money               `json:"descuento"`
	ResidentDiscount money               `json:"descuento_residentes"`
	ChildDiscount    money               `json:"descuento_ninos"`
	GroupDiscount    money               `json:"descuento_grupo"`
	ServiceDiscount  money               `json:"descuento_servicio"`
	Total            money               `json:"total"`
	PriceAdult       money               `json:"precio_adulto"`
	PriceChild       money               `json:"precio_nino"`
	PriceResident    money               `json:"precio_residente"`
	PayingSeats      int                 `json:"total_personas_con_plaza"`
	AppliedRule      *model.AppliedRule  `json:"regla_descuento_aplicada"`
	ServiceDiscounts serviceDiscountResp `json:"servicio_con_descuento"`
	Debug            priceDebug          `json:"debug"`
}

func newPriceResp(b pricing.Breakdown) priceResp {
	d := b.ServiceDiscountSet
	mode := d.Mode
	if mode == "" {
		mode = model.DiscountModeFlat
	}
	minPersons := d.MinimumPersons
	if minPersons <= 0 {
		minPersons = 1
	}
	return priceResp{
		BasePrice:        money(b.BasePrice),
		Discount:         money(b.ChannelDiscount()),
		ResidentDiscount: money(b.ResidentDiscount),
		ChildDiscount:    money(b.ChildDiscount),
		GroupDiscount:    money(b.GroupDiscount),
		ServiceDiscount:  money(b.ServiceDiscount),
		Total:            money(b.Total),
		PriceAdult:       money(b.PriceAdult),
		PriceChild:       money(b.PriceChild),
		PriceResident:    money(b.PriceResident),
		PayingSeats:      b.PayingSeats,
		AppliedRule:      b.AppliedRule,
		ServiceDiscounts: serviceDiscountResp{
			Enabled:        d.Enabled,
			Percentage:     money(d.Percentage),
			Mode:           mode,
			MinimumPersons: minPersons,
			Accumulable:    d.Accumulable,
			Priority:       b.Priority,
			Applied:        b.Outcome.AppliesService(),
		},
		Debug: priceDebug{
			Adults:           b.Travelers.Adults,
			Residents:        b.Travelers.Residents,
			Children5to12:    b.Travelers.Children5to12,
			ChildrenUnder5:   b.Travelers.ChildrenUnder5,
			PayingSeats:      b.PayingSeats,
			Base:             money(b.BasePrice),
			Subtotal:         money(b.Subtotal),
			GroupCandidate:   money(b.GroupCandidate),
			ServiceCandidate: money(b.ServiceCandidate),
			GroupApplied:     money(b.GroupDiscount),
			ServiceApplied:   money(b.ServiceDiscount),
			Accumulable:      d.Accumulable,
			Priority:         b.Priority,
			Outcome:          b.Outcome.String(),
		},
	}
}

// quote prices t on svc against the currently active group rules.
func quote(ctx context.Context, rules *repository.DiscountRuleRepo, calc *pricing.Calculator, svc *model.Service, t pricing.Travelers) (pricing.Breakdown, error) {
	active, err := rules.ListActive(ctx)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	return calc.Calculate(svc, pricing.NewResolver(active), t)
}

// pricingStatus maps calculation errors to a status and a user-safe
// message. ok is false for errors that are not the caller's fault.
func pricingStatus(err error) (status int, msg string, ok bool) {
	switch {
	case errors.Is(err, pricing.ErrServiceNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "servicio no encontrado", true
	case errors.Is(err, pricing.ErrInvalidTravelers):
		return http.StatusBadRequest, "número de viajeros no válido", true
	case errors.Is(err, pricing.ErrInvalidService):
		return http.StatusConflict, "servicio no disponible", true
	default:
		return http.StatusInternalServerError, "database error", false
	}
}

// Calculate handles POST /v1/prices/calculate.
func (h *PriceHandler) Calculate(c echo.Context) error {
	var req priceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err)})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	svc, err := h.Services.GetByID(ctx, req.ServiceID)
	if err == nil {
		var b pricing.Breakdown
		b, err = quote(ctx, h.Rules, h.Calc, svc, req.travelers())
		if err == nil {
			return c.JSON(http.StatusOK, newPriceResp(b))
		}
	}

	status, msg, expected := pricingStatus(err)
	if !expected {
		logFrom(h.Logger).Error("price calculation", zap.Uint64("service_id", req.ServiceID), zap.Error(err))
	} else if status == http.StatusConflict {
		logFrom(h.Logger).Warn("service pricing rejected", zap.Uint64("service_id", req.ServiceID), zap.Error(err))
	}
	return c.JSON(status, echo.Map{"error": msg})
}
