package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-tour-reservation/internal/middleware"
	"github.com/iliyamo/bus-tour-reservation/internal/pricing"
	"github.com/iliyamo/bus-tour-reservation/internal/queue"
	"github.com/iliyamo/bus-tour-reservation/internal/repository"
)

type fakePublisher struct {
	events []queue.ReservationConfirmedEvent
	err    error
}

func (f *fakePublisher) PublishReservationConfirmed(_ context.Context, ev queue.ReservationConfirmedEvent) error {
	f.events = append(f.events, ev)
	return f.err
}

var bookingNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func newReservationHandler(db *sql.DB, pub EventPublisher) *ReservationHandler {
	return &ReservationHandler{
		DB:           db,
		Services:     repository.NewServiceRepo(db),
		Rules:        repository.NewDiscountRuleRepo(db),
		Locators:     repository.NewLocatorRepo(db),
		Reservations: repository.NewReservationRepo(db),
		Calc:         pricing.NewCalculator(pricing.DefaultOptions()),
		Publisher:    pub,
		Loc:          time.UTC,
		Now:          func() time.Time { return bookingNow },
	}
}

const bookingBody = `{"service_id":3,"adultos":2,"ninos_5_12":1,"ninos_menores":1,
	"nombre":" Ana ","apellidos":"García","email":"Ana@Example.com","telefono":"600000000"}`

func expectLockedService(mock sqlmock.Sqlmock, seats int, status string) {
	mock.ExpectQuery(`FROM discount_rules`).WillReturnRows(sqlmock.NewRows(ruleCols))
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM servicios WHERE id = \? FOR UPDATE`).
		WillReturnRows(addService(sqlmock.NewRows(serviceCols), 3, day(2026, 5, 14), "10:00:00", seats, status))
}

func TestReservation_Create(t *testing.T) {
	db, mock := newMock(t)
	expectLockedService(mock, 12, "active")
	mock.ExpectExec(`UPDATE servicios\s+SET plazas_disponibles = plazas_disponibles - \?`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO configuration .* ON DUPLICATE KEY UPDATE`).
		WithArgs("ultimo_localizador_2026", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT config_value FROM configuration WHERE config_key = \? FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"config_value"}).AddRow("41"))
	mock.ExpectExec(`UPDATE configuration SET config_value = \?`).
		WithArgs("42", "ultimo_localizador_2026").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO reservas`).WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectQuery(`SELECT created_at, updated_at FROM reservas WHERE id = \?`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(bookingNow, bookingNow))
	mock.ExpectCommit()

	pub := &fakePublisher{}
	c, rec := newContext(http.MethodPost, "/v1/reservations", bookingBody)
	require.NoError(t, newReservationHandler(db, pub).Create(c))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	out := decode(t, rec)
	assert.Equal(t, "26000042", out["localizador"])
	assert.EqualValues(t, 11, out["reserva_id"])
	details := out["detalles"].(map[string]any)
	assert.Equal(t, "2026-05-14", details["fecha"])
	assert.Equal(t, "10:00", details["hora"])
	assert.EqualValues(t, 4, details["personas"])
	assert.Equal(t, 25.0, details["precio_final"])

	require.Len(t, pub.events, 1)
	assert.Equal(t, "26000042", pub.events[0].Locator)
	assert.Equal(t, "ana@example.com", pub.events[0].Email)
	assert.Equal(t, "Ana", pub.events[0].FirstName)
	assert.Equal(t, "25.00", pub.events[0].FinalPrice)
}

func TestReservation_Create_AgencyAttribution(t *testing.T) {
	db, mock := newMock(t)
	expectLockedService(mock, 12, "active")
	mock.ExpectExec(`UPDATE servicios`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO configuration`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT config_value`).
		WillReturnRows(sqlmock.NewRows([]string{"config_value"}).AddRow("0"))
	mock.ExpectExec(`UPDATE configuration`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO reservas`).
		WithArgs(
			"26000001", sqlmock.AnyArg(), "2026-05-14", "10:00:00", nil,
			"Ana", "García", "ana@example.com", "600000000",
			2, 0, 1, 1, 4,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			nil, "confirmada", "directo", uint64(4),
		).
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectQuery(`SELECT created_at`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(bookingNow, bookingNow))
	mock.ExpectCommit()

	c, rec := newContext(http.MethodPost, "/v1/agency/reservations", bookingBody)
	c.Set(middleware.CtxAgencyID, uint64(4))
	// publishing failures do not undo the booking
	require.NoError(t, newReservationHandler(db, &fakePublisher{err: errors.New("broker down")}).Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestReservation_Create_Rejections(t *testing.T) {
	t.Run("invalid contact data", func(t *testing.T) {
		db, _ := newMock(t)
		c, rec := newContext(http.MethodPost, "/v1/reservations",
			`{"service_id":3,"adultos":1,"nombre":"Ana","apellidos":"G","email":"not-an-email","telefono":"600000000"}`)
		require.NoError(t, newReservationHandler(db, nil).Create(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode(t, rec)["error"], "email")
	})

	t.Run("no paying traveler", func(t *testing.T) {
		db, _ := newMock(t)
		c, rec := newContext(http.MethodPost, "/v1/reservations",
			`{"service_id":3,"ninos_menores":2,"nombre":"Ana","apellidos":"G","email":"a@b.es","telefono":"600000000"}`)
		require.NoError(t, newReservationHandler(db, nil).Create(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("service inactive", func(t *testing.T) {
		db, mock := newMock(t)
		expectLockedService(mock, 12, "inactive")
		mock.ExpectRollback()

		c, rec := newContext(http.MethodPost, "/v1/reservations", bookingBody)
		require.NoError(t, newReservationHandler(db, nil).Create(c))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("not enough seats", func(t *testing.T) {
		db, mock := newMock(t)
		expectLockedService(mock, 2, "active")
		mock.ExpectRollback()

		c, rec := newContext(http.MethodPost, "/v1/reservations", bookingBody)
		require.NoError(t, newReservationHandler(db, nil).Create(c))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "no hay plazas suficientes", decode(t, rec)["error"])
	})

	t.Run("sold out during decrement", func(t *testing.T) {
		db, mock := newMock(t)
		expectLockedService(mock, 12, "active")
		mock.ExpectExec(`UPDATE servicios`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		c, rec := newContext(http.MethodPost, "/v1/reservations", bookingBody)
		require.NoError(t, newReservationHandler(db, nil).Create(c))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown service", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`FROM discount_rules`).WillReturnRows(sqlmock.NewRows(ruleCols))
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		c, rec := newContext(http.MethodPost, "/v1/reservations", bookingBody)
		require.NoError(t, newReservationHandler(db, nil).Create(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

var reservationCols = []string{
	"id", "localizador", "servicio_id", "fecha", "hora", "hora_vuelta",
	"nombre", "apellidos", "email", "telefono",
	"adultos", "residentes", "ninos_5_12", "ninos_menores", "total_personas",
	"precio_adulto", "precio_nino", "precio_residente", "precio_base", "descuento_total", "precio_final",
	"regla_descuento_aplicada", "estado", "metodo_pago", "agency_id", "recordatorio_enviado",
	"created_at", "updated_at",
}

func reservationRows(agency any, created time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(reservationCols).AddRow(
		5, "26000042", 3, day(2026, 5, 14), "10:00:00", "13:30:00",
		"Ana", "García", "ana@example.com", "600000000",
		2, 0, 1, 1, 4,
		"10.00", "5.00", "5.00", "30.00", "5.00", "25.00",
		nil, "confirmada", "directo", agency, false,
		created, created,
	)
}

func TestReservation_Get(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM reservas WHERE localizador = \?`).
		WithArgs("26000042").
		WillReturnRows(reservationRows(nil, bookingNow))
	mock.ExpectQuery(`FROM reservas WHERE localizador = \?`).
		WithArgs("26999999").
		WillReturnRows(sqlmock.NewRows(reservationCols))

	h := newReservationHandler(db, nil)

	c, rec := newContext(http.MethodGet, "/", "")
	c.SetParamNames("localizador")
	c.SetParamValues("26000042")
	require.NoError(t, h.Get(c))
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.EqualValues(t, 5, out["reserva_id"])
	assert.Equal(t, 25.0, out["detalles"].(map[string]any)["precio_final"])

	c, rec = newContext(http.MethodGet, "/", "")
	c.SetParamNames("localizador")
	c.SetParamValues("26999999")
	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = newContext(http.MethodGet, "/", "")
	c.SetParamNames("localizador")
	c.SetParamValues("x'; --")
	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReservation_Recent(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`ORDER BY created_at DESC`).
		WillReturnRows(reservationRows(nil, bookingNow.Add(-5*time.Minute)))
	mock.ExpectQuery(`ORDER BY created_at DESC`).
		WillReturnRows(reservationRows(nil, bookingNow.Add(-time.Hour)))
	mock.ExpectQuery(`ORDER BY created_at DESC`).
		WillReturnRows(sqlmock.NewRows(reservationCols))

	h := newReservationHandler(db, nil)
	for _, want := range []int{http.StatusOK, http.StatusNotFound, http.StatusNotFound} {
		c, rec := newContext(http.MethodGet, "/v1/reservations/recent", "")
		require.NoError(t, h.Recent(c))
		assert.Equal(t, want, rec.Code)
	}
}
