package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type EmailMessage struct {
	To      string
	Subject string
	HTML    string
}

type EmailSender interface {
	Send(ctx context.Context, message EmailMessage) error
}

// HTTPEmailSender posts messages to a transactional email API that accepts
// {from, to, subject, html} with a bearer key.
type HTTPEmailSender struct {
	apiURL     string
	apiKey     string
	from       string
	httpClient *http.Client
}

func NewHTTPEmailSender(apiURL, apiKey, from string) *HTTPEmailSender {
	return &HTTPEmailSender{
		apiURL:     strings.TrimRight(apiURL, "/"),
		apiKey:     apiKey,
		from:       from,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type emailPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (s *HTTPEmailSender) Send(ctx context.Context, message EmailMessage) error {
	to := strings.TrimSpace(message.To)
	if to == "" {
		return fmt.Errorf("send email: missing recipient")
	}

	body, err := json.Marshal(emailPayload{
		From:    s.from,
		To:      []string{to},
		Subject: message.Subject,
		HTML:    message.HTML,
	})
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("send email: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
