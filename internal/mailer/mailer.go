// Package mailer delivers transactional email through the SendGrid v3 API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/promptmart/promptmart-backend/pkg/config"
	"github.com/promptmart/promptmart-backend/pkg/logger"
)

const defaultEndpoint = "https://api.sendgrid.com/v3/mail/send"

// Mailer is the delivery surface consumed by the auth workflows.
type Mailer interface {
	Deliver(ctx context.Context, to, subject, html string) error
}

// SendgridMailer posts messages to the SendGrid v3 mail/send endpoint.
type SendgridMailer struct {
	httpClient *http.Client
	apiKey     string
	from       string
	endpoint   string
	logg       *logger.Logger
}

// NewSendgridMailer validates the configuration and returns a ready client.
func NewSendgridMailer(cfg config.SendgridConfig, logg *logger.Logger) (*SendgridMailer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	if strings.TrimSpace(cfg.DefaultFrom) == "" {
		return nil, errors.New("sendgrid from address is required")
	}
	return &SendgridMailer{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiKey:     cfg.APIKey,
		from:       cfg.DefaultFrom,
		endpoint:   defaultEndpoint,
		logg:       logg,
	}, nil
}

type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

type personalization struct {
	To []emailAddress `json:"to"`
}

type emailAddress struct {
	Email string `json:"email"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Deliver sends one HTML message to a single recipient.
func (m *SendgridMailer) Deliver(ctx context.Context, to, subject, html string) error {
	if strings.TrimSpace(to) == "" {
		return errors.New("recipient is required")
	}

	payload := sendRequest{
		Personalizations: []personalization{{To: []emailAddress{{Email: to}}}},
		From:             emailAddress{Email: m.from},
		Subject:          subject,
		Content:          []content{{Type: "text/html", Value: html}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusMultipleChoices {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if len(b) > 0 {
			return fmt.Errorf("sendgrid returned %s: %s", resp.Status, strings.TrimSpace(string(b)))
		}
		return fmt.Errorf("sendgrid returned %s", resp.Status)
	}

	if m.logg != nil {
		m.logg.Info(m.logg.WithField(ctx, "recipient", to), "email delivered")
	}
	return nil
}
