package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-tour-reservation/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var serviceCols = []string{
	"id", "fecha", "hora", "hora_vuelta", "plazas_totales", "plazas_disponibles", "plazas_bloqueadas",
	"precio_adulto", "precio_nino", "precio_residente",
	"tiene_descuento", "porcentaje_descuento", "descuento_tipo", "descuento_minimo_personas",
	"descuento_acumulable", "descuento_prioridad", "status", "enabled", "created_at", "updated_at",
}

func serviceRow(rows *sqlmock.Rows, id int64, returnTime any) *sqlmock.Rows {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return rows.AddRow(id, time.Date(2026, 5, 14, 0, 0, 0, 0, time.UTC), "10:00:00", returnTime, 50, 12, 0,
		"10.00", "5.00", "5.00",
		true, "10.00", "por_grupo", 8,
		false, "grupo", "active", true, now, now)
}

func TestServiceRepo_GetByID(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT .* FROM servicios WHERE id = \?`).
		WithArgs(uint64(3)).
		WillReturnRows(serviceRow(sqlmock.NewRows(serviceCols), 3, "13:30:00"))

	s, err := NewServiceRepo(db).GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), s.ID)
	assert.Equal(t, "13:30:00", s.ReturnTime)
	assert.True(t, decimal.RequireFromString("10").Equal(s.PriceAdult))
	assert.Equal(t, model.ServiceDiscount{
		Enabled:        true,
		Percentage:     s.Discount.Percentage,
		Mode:           model.DiscountModeGroup,
		MinimumPersons: 8,
		Priority:       model.PriorityGroup,
	}, s.Discount)
	assert.True(t, decimal.RequireFromString("10").Equal(s.Discount.Percentage))
}

func TestServiceRepo_GetByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM servicios WHERE id = \?`).WillReturnError(sql.ErrNoRows)

	_, err := NewServiceRepo(db).GetByID(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceRepo_ListBookable(t *testing.T) {
	db, mock := newMock(t)
	rows := sqlmock.NewRows(serviceCols)
	serviceRow(rows, 1, nil)
	serviceRow(rows, 2, "13:30:00")
	mock.ExpectQuery(`FROM servicios\s+WHERE fecha BETWEEN \? AND \?\s+AND enabled = 1 AND status = 'active' AND plazas_disponibles > 0`).
		WithArgs("2026-05-01", "2026-05-31").
		WillReturnRows(rows)

	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	list, err := NewServiceRepo(db).ListBookable(context.Background(), from, from.AddDate(0, 1, -1))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Empty(t, list[0].ReturnTime)
	assert.Equal(t, "13:30:00", list[1].ReturnTime)
}

func TestServiceRepo_DecrementSeatsTx(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE servicios\s+SET plazas_disponibles = plazas_disponibles - \?`).
		WithArgs(3, uint64(7), 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE servicios`).
		WithArgs(60, uint64(7), 60).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	repo := NewServiceRepo(db)
	assert.NoError(t, repo.DecrementSeatsTx(context.Background(), tx, 7, 3))
	assert.ErrorIs(t, repo.DecrementSeatsTx(context.Background(), tx, 7, 60), ErrSoldOut)
	assert.Error(t, repo.DecrementSeatsTx(context.Background(), tx, 7, 0))
	require.NoError(t, tx.Rollback())
}

func TestDiscountRuleRepo_ListActive(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "rule_name", "minimum_persons", "discount_percentage", "apply_to",
		"rule_description", "is_active", "created_at", "updated_at"}).
		AddRow(2, "Grupo XL", 20, "20.00", "total", nil, true, now, now).
		AddRow(1, "Descuento Grupo Grande", 10, "15.00", "total", "10+ personas", true, now, now)
	mock.ExpectQuery(`FROM discount_rules\s+WHERE is_active = 1\s+ORDER BY minimum_persons DESC, id ASC`).
		WillReturnRows(rows)

	rules, err := NewDiscountRuleRepo(db).ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, 20, rules[0].MinimumPersons)
	assert.Empty(t, rules[0].Description)
	assert.Equal(t, "10+ personas", rules[1].Description)
	assert.True(t, decimal.RequireFromString("15").Equal(rules[1].Percentage))
}

func TestConfigRepo_All(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT config_key, config_value FROM configuration`).
		WillReturnRows(sqlmock.NewRows([]string{"config_key", "config_value"}).
			AddRow("moneda", "EUR").
			AddRow("dias_anticipacion_minima", "1").
			AddRow("vacio", nil))

	s, err := NewConfigRepo(db).All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "EUR", s.String(model.ConfigCurrency, ""))
	assert.Equal(t, 1, s.Int(model.ConfigMinAdvanceDays, 0))
	assert.Equal(t, "", s["vacio"])
}

func TestLocatorRepo_NextTx(t *testing.T) {
	tests := []struct {
		name    string
		current any
		want    string
		update  string
	}{
		{"first of year", "0", "26000001", "1"},
		{"continues", "41", "26000042", "42"},
		{"null value", nil, "26000001", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			mock.ExpectBegin()
			mock.ExpectExec(`INSERT INTO configuration .* ON DUPLICATE KEY UPDATE`).
				WithArgs("ultimo_localizador_2026", sqlmock.AnyArg()).
				WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectQuery(`SELECT config_value FROM configuration WHERE config_key = \? FOR UPDATE`).
				WithArgs("ultimo_localizador_2026").
				WillReturnRows(sqlmock.NewRows([]string{"config_value"}).AddRow(tt.current))
			mock.ExpectExec(`UPDATE configuration SET config_value = \? WHERE config_key = \?`).
				WithArgs(tt.update, "ultimo_localizador_2026").
				WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectCommit()

			tx, err := db.Begin()
			require.NoError(t, err)
			got, err := NewLocatorRepo(db).NextTx(context.Background(), tx, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
			require.NoError(t, err)
			require.NoError(t, tx.Commit())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocatorRepo_Exhausted(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO configuration`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT config_value`).
		WillReturnRows(sqlmock.NewRows([]string{"config_value"}).AddRow("999999"))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	_, err = NewLocatorRepo(db).NextTx(context.Background(), tx, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrLocatorsExhausted)
	require.NoError(t, tx.Rollback())
}

func TestFormatLocator(t *testing.T) {
	assert.Equal(t, "26000042", FormatLocator(2026, 42))
	assert.Equal(t, "00999999", FormatLocator(2100, 999999))
	assert.Equal(t, "ultimo_localizador_2026", LocatorKey(2026))
}

var reservationCols = []string{
	"id", "localizador", "servicio_id", "fecha", "hora", "hora_vuelta",
	"nombre", "apellidos", "email", "telefono",
	"adultos", "residentes", "ninos_5_12", "ninos_menores", "total_personas",
	"precio_adulto", "precio_nino", "precio_residente", "precio_base", "descuento_total", "precio_final",
	"regla_descuento_aplicada", "estado", "metodo_pago", "agency_id", "recordatorio_enviado",
	"created_at", "updated_at",
}

func reservationRow(rule, agency any) *sqlmock.Rows {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(reservationCols).AddRow(
		5, "26000042", 3, time.Date(2026, 5, 14, 0, 0, 0, 0, time.UTC), "10:00:00", nil,
		"Ana", "García", "ana@example.com", "600000000",
		10, 0, 0, 0, 10,
		"10.00", "5.00", "5.00", "100.00", "15.00", "85.00",
		rule, "confirmada", "directo", agency, false,
		now, now,
	)
}

func TestReservationRepo_GetByLocator(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM reservas WHERE localizador = \? AND estado = 'confirmada'`).
		WithArgs("26000042").
		WillReturnRows(reservationRow(`{"rule_name":"Descuento Grupo Grande","discount_percentage":"15","minimum_persons":10}`, 4))

	res, err := NewReservationRepo(db).GetByLocator(context.Background(), "26000042")
	require.NoError(t, err)
	assert.Equal(t, "26000042", res.Locator)
	assert.Empty(t, res.ReturnTime)
	assert.True(t, decimal.RequireFromString("85").Equal(res.FinalPrice))
	require.NotNil(t, res.AppliedRule)
	assert.Equal(t, "Descuento Grupo Grande", res.AppliedRule.RuleName)
	assert.Equal(t, 10, res.AppliedRule.MinimumPersons)
	require.NotNil(t, res.AgencyID)
	assert.Equal(t, uint64(4), *res.AgencyID)
}

func TestReservationRepo_GetByLocator_NotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM reservas WHERE localizador`).WillReturnRows(sqlmock.NewRows(reservationCols))

	_, err := NewReservationRepo(db).GetByLocator(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReservationRepo_MostRecentConfirmed(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`ORDER BY created_at DESC, id DESC LIMIT 1`).
		WillReturnRows(reservationRow(nil, nil))

	res, err := NewReservationRepo(db).MostRecentConfirmed(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res.AppliedRule)
	assert.Nil(t, res.AgencyID)
}

func TestReservationRepo_CreateTx(t *testing.T) {
	db, mock := newMock(t)
	created := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO reservas`).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectQuery(`SELECT created_at, updated_at FROM reservas WHERE id = \?`).
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(created, created))
	mock.ExpectCommit()

	res := &model.Reservation{
		Locator:     "26000001",
		ServiceID:   3,
		VisitDate:   time.Date(2026, 5, 14, 0, 0, 0, 0, time.UTC),
		FinalPrice:  decimal.RequireFromString("25"),
		AppliedRule: &model.AppliedRule{RuleName: "r", MinimumPersons: 10},
	}
	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, NewReservationRepo(db).CreateTx(context.Background(), tx, res))
	require.NoError(t, tx.Commit())

	assert.Equal(t, uint64(11), res.ID)
	assert.Equal(t, created, res.CreatedAt)
	assert.Equal(t, model.ReservationConfirmed, res.Status)
	assert.Equal(t, model.PaymentDirect, res.PaymentMethod)
}

func TestReservationRepo_CreateTx_Duplicate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO reservas`).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry '26000001'"))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	err = NewReservationRepo(db).CreateTx(context.Background(), tx, &model.Reservation{Locator: "26000001"})
	assert.ErrorIs(t, err, ErrConflict)
	require.NoError(t, tx.Rollback())
}

func TestUserRepo_GetByEmail(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(`FROM users WHERE email=\?`).
		WithArgs("agencia@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "role", "agency_id", "is_active", "created_at", "updated_at"}).
			AddRow(2, "agencia@example.com", "hash", model.RoleAgency, 4, true, now, now))

	u, err := NewUserRepo(db).GetByEmail(context.Background(), "  Agencia@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAgency, u.Role)
	require.NotNil(t, u.AgencyID)
	assert.Equal(t, uint64(4), *u.AgencyID)
}

func TestUserRepo_Create_Duplicate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(errors.New("Error 1062: Duplicate entry"))

	_, err := NewUserRepo(db).Create(context.Background(), "a@b.c", "pw", model.RoleAdmin, nil, 4)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestTokenRepo_ValidateRefresh(t *testing.T) {
	cols := []string{"user_id", "expires_at", "revoked_at"}
	tests := []struct {
		name    string
		row     []driver.Value
		wantID  uint64
		wantErr error
	}{
		{"valid", []driver.Value{7, time.Now().Add(time.Hour), nil}, 7, nil},
		{"expired", []driver.Value{7, time.Now().Add(-time.Hour), nil}, 0, ErrNotFound},
		{"revoked", []driver.Value{7, time.Now().Add(time.Hour), time.Now()}, 0, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			mock.ExpectQuery(`FROM refresh_tokens WHERE token_hash=\?`).
				WithArgs("h").
				WillReturnRows(sqlmock.NewRows(cols).AddRow(tt.row...))

			id, err := NewTokenRepo(db).ValidateRefresh(context.Background(), "h")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
		})
	}
}
