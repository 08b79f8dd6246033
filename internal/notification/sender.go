package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

var ErrSend = errors.New("email delivery failed")

// Message is a rendered email
type Message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Sender delivers rendered emails
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ResendSender delivers email through the Resend HTTP API
type ResendSender struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewResendSender(baseURL, apiKey string, httpClient *http.Client) *ResendSender {
	return &ResendSender{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrSend, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

// LogSender only logs messages. Used when no email API key is configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(ctx context.Context, msg Message) error {
	s.Logger.InfoContext(ctx, "email not sent, no provider configured",
		"to", strings.Join(msg.To, ","),
		"subject", msg.Subject,
	)
	return nil
}
