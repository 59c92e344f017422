package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/marcus-lindholm/alkoholperkrona-sub000/config"
	"github.com/marcus-lindholm/alkoholperkrona-sub000/internal/util"

	"go.uber.org/zap"
)

// Mailer sends operator alert emails through an HTTP mail API.
type Mailer struct {
	cfg    config.NotifyConfig
	client *http.Client
	logger *zap.Logger
}

// NewMailer creates a mailer
func NewMailer(cfg config.NotifyConfig) *Mailer {
	return &Mailer{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: util.GetLogger(),
	}
}

// Enabled reports whether the mailer is configured
func (m *Mailer) Enabled() bool {
	return m.cfg.MailAPIURL != "" && m.cfg.MailAPIKey != "" && m.cfg.To != ""
}

// SendAlert sends a plain-text operator alert. An unconfigured mailer
// drops the alert with a warning instead of failing the caller.
func (m *Mailer) SendAlert(ctx context.Context, subject, body string) error {
	if !m.Enabled() {
		m.logger.Warn("Operator mail not configured, dropping alert",
			zap.String("subject", subject))
		return nil
	}

	payload := map[string]interface{}{
		"personalizations": []map[string]interface{}{
			{"to": []map[string]string{{"email": m.cfg.To}}},
		},
		"from":    map[string]string{"email": m.cfg.From},
		"subject": subject,
		"content": []map[string]string{
			{"type": "text/plain", "value": body},
		},
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.MailAPIURL, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to build mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.cfg.MailAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("mail request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("mail API returned status %d", resp.StatusCode)
	}

	m.logger.Info("Operator alert sent", zap.String("subject", subject))
	return nil
}
