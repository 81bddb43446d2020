// Package mailer delivers one-time codes through the Resend HTTP API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/openbiocard/openbiocard-backend/pkg/config"
	"github.com/openbiocard/openbiocard-backend/pkg/logger"
	"github.com/sethvargo/go-retry"
)

// Purpose selects the message template.
type Purpose string

const (
	PurposeVerification  Purpose = "verification"
	PurposePasswordReset Purpose = "password_reset"
)

var subjects = map[Purpose]string{
	PurposeVerification:  "Verify your OpenBioCard email",
	PurposePasswordReset: "Reset your OpenBioCard password",
}

var bodyTemplate = template.Must(template.New("code").Parse(`<div style="font-family: sans-serif; padding: 20px; max-width: 500px; margin: 0 auto;">
  <p>Hello {{.Username}},</p>
  <p>{{.Intro}}</p>
  <div style="background: #f4f4f4; padding: 15px; text-align: center; font-size: 24px; font-weight: bold; letter-spacing: 5px;">{{.Code}}</div>
  <p style="color: #666; font-size: 12px;">If you did not request this, ignore this email.</p>
</div>`))

var intros = map[Purpose]string{
	PurposeVerification:  "Enter this code to finish verifying your email address.",
	PurposePasswordReset: "Enter this code to choose a new password.",
}

// Client sends codes; without an API key it only logs them.
type Client struct {
	httpClient *http.Client
	apiKey     string
	from       string
	endpoint   string
	maxRetries uint64
	logg       *logger.Logger
}

func New(cfg config.MailConfig, logg *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     cfg.APIKey,
		from:       cfg.From,
		endpoint:   cfg.Endpoint,
		maxRetries: cfg.MaxRetries,
		logg:       logg,
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendCode delivers code to email for the given purpose.
func (c *Client) SendCode(ctx context.Context, purpose Purpose, email, code, username string) error {
	subject, ok := subjects[purpose]
	if !ok {
		return fmt.Errorf("unknown mail purpose %q", purpose)
	}

	ctx = c.logg.WithFields(ctx, map[string]any{
		"mail_purpose": string(purpose),
		"username":     username,
	})
	if c.apiKey == "" {
		c.logg.Warn(ctx, "mail api key not configured; code not delivered")
		return nil
	}

	var html bytes.Buffer
	if err := bodyTemplate.Execute(&html, map[string]string{
		"Username": username,
		"Intro":    intros[purpose],
		"Code":     code,
	}); err != nil {
		return fmt.Errorf("render mail body: %w", err)
	}

	payload, err := json.Marshal(sendRequest{
		From:    c.from,
		To:      []string{email},
		Subject: subject,
		HTML:    html.String(),
	})
	if err != nil {
		return fmt.Errorf("encode mail request: %w", err)
	}

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(200*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		return c.post(ctx, payload)
	})
	if err != nil {
		return err
	}
	c.logg.Info(ctx, "mail delivered")
	return nil
}

func (c *Client) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return retry.RetryableError(fmt.Errorf("send mail: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	apiErr := fmt.Errorf("mail provider status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return retry.RetryableError(apiErr)
	}
	return errors.Join(ErrRejected, apiErr)
}

// ErrRejected marks a non-retryable provider response.
var ErrRejected = errors.New("mail rejected by provider")
