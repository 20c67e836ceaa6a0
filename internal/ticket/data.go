package ticket

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/bus-tour-reservation/internal/model"
)

// ErrInvalidReservation is returned for reservations a ticket cannot be
// printed for.
var ErrInvalidReservation = errors.New("invalid reservation for ticket")

// Options selects the ticket variant.
type Options struct {
	// HidePrices prints traveler counts only, for intermediary copies that
	// must not reveal consumer pricing.
	HidePrices bool
	// AgencyCopy marks the document as issued to an agency.
	AgencyCopy bool
}

// Line is one row of the main traveler table.
type Line struct {
	Label string
	Count int
	Unit  string // formatted unit price
	Total string // formatted row total
}

// Ticket holds every printable value, already formatted. Amounts come
// from the reservation's frozen fields only.
type Ticket struct {
	Locator      string
	VisitDate    string // dd/mm/yyyy
	PurchaseDate string // dd/mm/yyyy
	Departure    string // HH:MM
	Return       string // HH:MM
	Product      string
	StubProduct  string
	Lines        []Line
	Total        string
	HidePrices   bool
	AgencyCopy   bool
	Payload      string
}

const (
	productName  = "TAQ BUS Madinat Al-Zahra + Lanzadera"
	organizer    = "AUTOCARES BRAVO PALACIOS,S.L."
	addressLine1 = "INGENIERO BARBUDO, S/N - CORDOBA"
	addressLine2 = "CIF: B14485817 - Teléfono: 957429034"
	clientAgent  = "TAQUILLA BRAVO BUS - FRANCISCO BRAVO"
	language     = "Español"
	meetingOne   = "1-Paseo de la Victoria (glorieta Hospital Cruz Roja)"
	meetingTwo   = "2-Paseo de la Victoria (frente Mercado Victoria)"
	integrity    = "Mantenga la integridad de toda la hoja, sin cortar ninguna de las zonas impresas."
	confirmed    = "RESERVA CONFIRMADA"

	conditionsTitle = "CONDICIONES DE COMPRA"
	conditionsText  = "La adquisición de la entrada supone la aceptación de las siguientes condiciones" +
		"- No se admiten devoluciones ni cambios de entradas." +
		"- La Organización no garantiza la autenticidad de la entrada si ésta no ha sido adquirida en los puntos oficiales de venta." +
		"- En caso de suspensión del servicio, la devolución se efectuará por la Organización dentro del plazo de 15 días de la fecha de celebración." +
		"- En caso de suspensión del servicio, una vez iniciado, no habrá derecho a devolución del importe de la entrada." +
		"- La Organización no se responsabiliza de posibles demoras ajenas a su voluntad." +
		"- Es potestad de la Organización permitir la entrada al servicio una vez haya empezado." +
		"- La admisión se supedita a la disposición de la entrada en buenas condiciones." +
		"- Debe de estar en el punto de salida 10 minutos antes de la hora prevista de partida."
)

// BarcodePayload is the locator followed by the visit date as YYYYMMDD.
func BarcodePayload(locator string, visit time.Time) string {
	return locator + visit.Format("20060102")
}

// NewTicket formats res for printing. Dates are shown in loc.
func NewTicket(res *model.Reservation, opts Options, loc *time.Location) (Ticket, error) {
	if res == nil {
		return Ticket{}, fmt.Errorf("%w: nil reservation", ErrInvalidReservation)
	}
	if strings.TrimSpace(res.Locator) == "" {
		return Ticket{}, fmt.Errorf("%w: missing locator", ErrInvalidReservation)
	}
	if res.VisitDate.IsZero() {
		return Ticket{}, fmt.Errorf("%w: missing visit date", ErrInvalidReservation)
	}
	if loc == nil {
		loc = time.UTC
	}

	departure := model.ShortClock(res.DepartureTime)
	ret := model.ShortClock(res.ReturnTime)
	purchased := res.CreatedAt
	if purchased.IsZero() {
		purchased = time.Now()
	}

	t := Ticket{
		Locator:      res.Locator,
		VisitDate:    res.VisitDate.Format("02/01/2006"),
		PurchaseDate: purchased.In(loc).Format("02/01/2006"),
		Departure:    departure,
		Return:       ret,
		Product:      fmt.Sprintf("%s (%s hrs)", productName, departure),
		StubProduct:  fmt.Sprintf("%s (%s / %s hrs)", productName, departure, ret),
		Total:        FormatMoney(res.FinalPrice),
		HidePrices:   opts.HidePrices,
		AgencyCopy:   opts.AgencyCopy,
		Payload:      BarcodePayload(res.Locator, res.VisitDate),
	}

	add := func(label string, n int, unit decimal.Decimal) {
		if n <= 0 {
			return
		}
		t.Lines = append(t.Lines, Line{
			Label: label,
			Count: n,
			Unit:  FormatMoney(unit),
			Total: FormatMoney(unit.Mul(decimal.NewFromInt(int64(n)))),
		})
	}
	add("Adultos", res.Adults, res.PriceAdult)
	add("Residentes", res.Residents, res.PriceResident)
	add("Niños (5 a 12 años)", res.Children5to12, res.PriceChild)
	add("Niños (menores 5 años)", res.ChildrenUnder5, decimal.Zero)
	return t, nil
}

// FormatMoney renders an amount as "1,234.50 €".
func FormatMoney(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac := s[:len(s)-3], s[len(s)-3:]

	var sb strings.Builder
	if d.IsNegative() && !d.Round(2).IsZero() {
		sb.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(r)
	}
	sb.WriteString(frac)
	sb.WriteString(" €")
	return sb.String()
}
