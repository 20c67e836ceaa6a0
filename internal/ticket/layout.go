package ticket

import (
	"strconv"
)

// Fixed anchors of the page, in millimetres.
const (
	marginX = 15.0
	bodyW   = 180.0

	mainTop = 15.0
	// Below stubTop the main section stays left of mainMaxX so it never
	// runs into the stub.
	mainMaxX = 120.0

	stubX   = 125.0
	stubTop = 95.0
	stubW   = 70.0
	stubH   = 70.0

	conditionsTop = 170.0
	footerTop     = 208.0

	barcodeTop = 270.0
	barcodeW   = 120.0
	barcodeH   = 12.0
)

var (
	regular = func(size float64) Font { return Font{Size: size} }
	bold    = func(size float64) Font { return Font{Bold: true, Size: size} }
)

// Draw lays the ticket out on c, region by region. footer may be nil.
func Draw(c Canvas, t Ticket, footer *Image) error {
	drawMain(c, t)
	drawStub(c, t)
	drawConditions(c)
	return drawFooter(c, t, footer)
}

func drawMain(c Canvas, t Ticket) {
	c.BeginRegion(RegionMain)
	y := mainTop

	if !t.HidePrices {
		c.SetFont(bold(9))
		c.Text(Box{15, y, 15, 6}, "Unidades", AlignCenter, true)
		c.Text(Box{30, y, 80, 6}, "Plazas:", AlignLeft, true)
		c.Text(Box{110, y, 25, 6}, "Precio:", AlignCenter, true)
		c.Text(Box{135, y, 25, 6}, "Total:", AlignCenter, true)
		y += 6

		c.SetFont(regular(9))
		for _, l := range t.Lines {
			c.Text(Box{15, y, 15, 5}, strconv.Itoa(l.Count), AlignCenter, true)
			c.Text(Box{30, y, 80, 5}, l.Label, AlignLeft, true)
			c.Text(Box{110, y, 25, 5}, l.Unit, AlignCenter, true)
			c.Text(Box{135, y, 25, 5}, l.Total, AlignCenter, true)
			y += 5
		}

		c.SetFont(bold(11))
		c.Text(Box{95, y, 50, 8}, t.Total, AlignCenter, true)
		y += 8 + 5
	} else {
		c.SetFont(bold(12))
		c.Text(Box{marginX, y, bodyW, 6}, "DISTRIBUCIÓN DE VIAJEROS", AlignCenter, false)
		y += 6 + 5

		c.SetFont(bold(9))
		c.Text(Box{15, y, 70, 6}, "Tipo de Viajero", AlignCenter, true)
		c.Text(Box{85, y, 30, 6}, "Cantidad", AlignCenter, true)
		y += 6

		c.SetFont(regular(9))
		for _, l := range t.Lines {
			c.Text(Box{15, y, 70, 5}, l.Label, AlignLeft, true)
			c.Text(Box{85, y, 30, 5}, strconv.Itoa(l.Count), AlignCenter, true)
			y += 5
		}
		y += 5
	}

	c.SetFont(bold(12))
	c.Text(Box{marginX, y, bodyW, 6}, t.Product, AlignLeft, false)
	y += 6 + 3

	// localizer sits in the top right corner of the trip details
	c.SetFont(bold(9))
	c.Text(Box{120, y, 75, 5}, "Localizador/Localizer:", AlignLeft, false)
	c.SetFont(bold(12))
	c.Text(Box{150, y + 5, 45, 5}, t.Locator, AlignLeft, false)

	label := func(row float64, name, value string) {
		c.SetFont(bold(9))
		c.Text(Box{15, row, 30, 5}, name, AlignLeft, false)
		c.SetFont(regular(9))
		c.Text(Box{45, row, 40, 5}, value, AlignLeft, false)
	}
	label(y, "Fecha Visita:", t.VisitDate)
	y += 5
	label(y, "Hora de Salida:", t.Departure+" hrs")
	y += 5
	label(y, "Hora de Vuelta:", t.Return+" hrs")
	y += 5
	label(y, "Idioma:", language)
	y += 5

	c.SetFont(bold(9))
	c.Text(Box{15, y, 30, 5}, "Producto:", AlignLeft, false)
	c.SetFont(regular(9))
	c.TextBlock(Box{45, y, mainMaxX - 45, 10}, 5, t.Product, AlignLeft, false)
	y += 10 + 3

	label(y, "Fecha Compra:", t.PurchaseDate)
	y += 5 + 5

	c.SetFont(bold(9))
	c.Text(Box{15, y, 35, 5}, "Punto de Encuentro:", AlignLeft, false)
	y += 5
	c.SetFont(regular(8))
	c.Text(Box{15, y, mainMaxX - 15, 4}, meetingOne, AlignLeft, false)
	y += 4
	c.Text(Box{15, y, mainMaxX - 15, 4}, meetingTwo, AlignLeft, false)
	y += 4 + 3

	c.SetFont(bold(9))
	c.Text(Box{15, y, 25, 5}, "Cliente/Agente:", AlignLeft, false)
	c.SetFont(regular(8))
	c.Text(Box{40, y, mainMaxX - 40, 5}, clientAgent, AlignLeft, false)
	y += 5 + 3

	c.SetFont(bold(9))
	c.Text(Box{15, y, 20, 5}, "Organiza:", AlignLeft, false)
	y += 5
	c.Text(Box{15, y, mainMaxX - 15, 4}, organizer, AlignLeft, false)
	y += 4
	c.SetFont(regular(7))
	c.Text(Box{15, y, mainMaxX - 15, 4}, addressLine1+" - "+addressLine2, AlignLeft, false)
}

func drawStub(c Canvas, t Ticket) {
	c.BeginRegion(RegionStub)
	c.Rect(Box{stubX, stubTop, stubW, stubH})

	const x, w = stubX + 2, stubW - 4

	c.SetFont(bold(10))
	c.Text(Box{x, stubTop + 5, w, 6}, "Localizador/Localizer:", AlignCenter, false)
	c.SetFont(bold(16))
	c.Text(Box{x, stubTop + 11, w, 8}, t.Locator, AlignCenter, false)

	row := func(y float64, name, value string) {
		c.SetFont(bold(8))
		c.Text(Box{x, y, 25, 4}, name, AlignLeft, false)
		c.SetFont(regular(8))
		c.Text(Box{x + 25, y, w - 25, 4}, value, AlignLeft, false)
	}
	row(stubTop+20, "Fecha Compra:", t.PurchaseDate)

	c.SetFont(bold(8))
	c.Text(Box{x, stubTop + 24, 25, 4}, "Producto:", AlignLeft, false)
	c.SetFont(regular(7))
	c.TextBlock(Box{x + 25, stubTop + 24, w - 25, 9}, 3, t.StubProduct, AlignLeft, false)

	row(stubTop+34, "Fecha Visita:", t.VisitDate)
	row(stubTop+38, "Hora de Salida:", t.Departure+" hrs")
	row(stubTop+42, "Idioma:", language)

	if !t.HidePrices {
		c.SetFont(bold(11))
		c.Text(Box{x, stubTop + 47, w, 6}, "Total: "+t.Total, AlignCenter, false)
	} else {
		c.SetFont(bold(10))
		c.Text(Box{x, stubTop + 47, w, 6}, confirmed, AlignCenter, false)
	}

	c.SetFont(bold(7))
	c.Text(Box{x, stubTop + 54, w, 3}, "Organiza:", AlignLeft, false)
	c.Text(Box{x, stubTop + 57, w, 3}, organizer, AlignLeft, false)
	c.SetFont(regular(6))
	c.Text(Box{x, stubTop + 60, w, 3}, addressLine1, AlignLeft, false)
	c.Text(Box{x, stubTop + 63, w, 3}, addressLine2, AlignLeft, false)

	c.SetFont(regular(7))
	c.Text(Box{x, stubTop + 66, w, 3}, "Código: "+t.Payload, AlignCenter, false)
}

func drawConditions(c Canvas) {
	c.BeginRegion(RegionConditions)

	c.SetFont(bold(9))
	c.Text(Box{marginX, conditionsTop, bodyW, 5}, conditionsTitle, AlignCenter, false)

	c.SetFont(regular(6))
	c.TextBlock(Box{marginX, conditionsTop + 7, bodyW, 24}, 3, conditionsText, AlignJustify, true)

	c.SetFont(bold(7))
	c.Text(Box{marginX, conditionsTop + 33, bodyW, 3}, integrity, AlignCenter, false)
}

func drawFooter(c Canvas, t Ticket, footer *Image) error {
	c.BeginRegion(RegionFooter)

	if b, ok := footerBox(footer); ok {
		c.Image(b, footer)
	}

	if err := c.Barcode(Box{marginX, barcodeTop, barcodeW, barcodeH}, t.Payload); err != nil {
		return err
	}
	c.SetFont(regular(8))
	c.Text(Box{marginX, barcodeTop + barcodeH + 1, barcodeW, 4}, t.Payload, AlignCenter, false)

	if !t.HidePrices {
		c.SetFont(bold(12))
		c.Text(Box{150, barcodeTop + 5, 40, 6}, "Total: "+t.Total, AlignRight, false)
	}
	return nil
}

// footerBox scales img to the body width, shrinking it to the space left
// above the barcode, and centres it horizontally.
func footerBox(img *Image) (Box, bool) {
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return Box{}, false
	}
	maxH := barcodeTop - 2 - footerTop

	w := bodyW
	h := float64(img.Height) * w / float64(img.Width)
	if h > maxH {
		h = maxH
		w = float64(img.Width) * h / float64(img.Height)
	}
	return Box{marginX + (bodyW-w)/2, footerTop, w, h}, true
}
