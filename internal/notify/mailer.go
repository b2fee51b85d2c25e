package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lshigami/Symposium/config"
	"github.com/rs/zerolog/log"
)

type Mail struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

// NewMailer returns an HTTP mailer when MAIL_API_URL is configured and a
// logging mailer otherwise.
func NewMailer(cfg *config.Config) Mailer {
	if cfg.Mail.APIURL == "" || cfg.Mail.APIKey == "" {
		log.Warn().Msg("MAIL_API_URL or MAIL_API_KEY not set, emails will only be logged")
		return LogMailer{}
	}
	return NewHTTPMailer(cfg.Mail.APIURL, cfg.Mail.APIKey, cfg.Mail.From)
}

type LogMailer struct{}

func (LogMailer) Send(_ context.Context, mail Mail) error {
	log.Info().Str("to", mail.To).Str("subject", mail.Subject).Msg("mail (log only)")
	return nil
}

// HTTPMailer posts a transactional email to a Brevo-compatible JSON API.
type HTTPMailer struct {
	url    string
	apiKey string
	from   string
	client *http.Client
}

func NewHTTPMailer(url, apiKey, from string) *HTTPMailer {
	return &HTTPMailer{
		url:    url,
		apiKey: apiKey,
		from:   from,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type mailPayload struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
}

func (m *HTTPMailer) Send(ctx context.Context, mail Mail) error {
	if mail.To == "" || !strings.Contains(mail.To, "@") {
		return fmt.Errorf("invalid recipient email: %q", mail.To)
	}
	name := mail.ToName
	if name == "" {
		name = mail.To[:strings.Index(mail.To, "@")]
	}

	body, err := json.Marshal(mailPayload{
		Sender:      map[string]string{"email": m.from},
		To:          []map[string]string{{"email": mail.To, "name": name}},
		Subject:     mail.Subject,
		HTMLContent: mail.HTML,
	})
	if err != nil {
		return fmt.Errorf("marshal mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("content-type", "application/json")
	req.Header.Set("api-key", m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send mail request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("mail api returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
