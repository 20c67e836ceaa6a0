// Package mailer sends reservation tickets by e-mail through Resend.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"

	"github.com/iliyamo/bus-tour-reservation/internal/config"
	"github.com/iliyamo/bus-tour-reservation/internal/model"
	"github.com/iliyamo/bus-tour-reservation/internal/ticket"
)

// ErrNotConfigured is returned when no Resend API key is set.
var ErrNotConfigured = errors.New("mailer not configured")

// maxAttachmentBytes keeps messages below the provider limit.
const maxAttachmentBytes = 10 << 20

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html lang="es"><body style="font-family:Arial,sans-serif;color:#333">
<h2>Reserva confirmada</h2>
<p>Hola {{.Name}},</p>
<p>Su reserva <strong>{{.Locator}}</strong> para el {{.VisitDate}} a las {{.Departure}} hrs ha sido confirmada.</p>
<table cellpadding="4">
<tr><td>Viajeros</td><td>{{.Travelers}}</td></tr>
<tr><td>Importe</td><td>{{.Total}}</td></tr>
</table>
<p>Adjuntamos su billete en PDF. Preséntelo impreso o en el móvil en el punto de salida 10 minutos antes de la hora prevista.</p>
<p>{{.Sender}}</p>
</body></html>`))

type confirmationData struct {
	Name      string
	Locator   string
	VisitDate string
	Departure string
	Travelers int
	Total     string
	Sender    string
}

// Mailer delivers ticket e-mails.
type Mailer struct {
	client *resend.Client
	from   string
	sender string
	logger *zap.Logger
}

// New builds a Mailer from cfg. A nil *Mailer is returned with
// ErrNotConfigured when the API key is empty.
func New(cfg config.MailConfig, logger *zap.Logger) (*Mailer, error) {
	if cfg.ResendAPIKey == "" {
		return nil, ErrNotConfigured
	}
	return newMailer(resend.NewClient(cfg.ResendAPIKey), cfg, logger), nil
}

// NewWithEndpoint is New against a custom API base URL.
func NewWithEndpoint(cfg config.MailConfig, endpoint string, httpClient *http.Client, logger *zap.Logger) (*Mailer, error) {
	if cfg.ResendAPIKey == "" {
		return nil, ErrNotConfigured
	}
	base, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("mail endpoint: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	client := resend.NewCustomClient(httpClient, cfg.ResendAPIKey)
	client.BaseURL = base
	return newMailer(client, cfg, logger), nil
}

func newMailer(client *resend.Client, cfg config.MailConfig, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	from := cfg.FromAddress
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddress)
	}
	return &Mailer{client: client, from: from, sender: cfg.FromName, logger: logger}
}

// SendTicket e-mails the ticket at path to the reservation's customer.
func (m *Mailer) SendTicket(ctx context.Context, res *model.Reservation, path string) error {
	if m == nil {
		return ErrNotConfigured
	}
	if res.Email == "" {
		return fmt.Errorf("reservation %s has no e-mail", res.Locator)
	}

	pdf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read ticket: %w", err)
	}
	if len(pdf) > maxAttachmentBytes {
		return fmt.Errorf("ticket %s too large to attach (%d bytes)", filepath.Base(path), len(pdf))
	}

	var body bytes.Buffer
	if err := confirmationTmpl.Execute(&body, confirmationData{
		Name:      res.FullName(),
		Locator:   res.Locator,
		VisitDate: res.VisitDate.Format("02/01/2006"),
		Departure: model.ShortClock(res.DepartureTime),
		Travelers: res.TotalTravelers,
		Total:     ticket.FormatMoney(res.FinalPrice),
		Sender:    m.sender,
	}); err != nil {
		return fmt.Errorf("render e-mail: %w", err)
	}

	sent, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{res.Email},
		Subject: fmt.Sprintf("Confirmación de reserva %s", res.Locator),
		Html:    body.String(),
		Attachments: []*resend.Attachment{{
			Content:  pdf,
			Filename: fmt.Sprintf("billete_%s.pdf", res.Locator),
		}},
		Tags: []resend.Tag{
			{Name: "category", Value: "ticket"},
		},
	})
	if err != nil {
		m.logger.Error("failed to send ticket e-mail", zap.String("localizador", res.Locator), zap.Error(err))
		return fmt.Errorf("send e-mail: %w", err)
	}

	m.logger.Info("ticket e-mail sent",
		zap.String("localizador", res.Locator),
		zap.String("email_id", sent.Id),
	)
	return nil
}
