package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mcvu-symposium/ms-go-registration/config"
)

// Mailer dispatches one transactional email with binary attachments.
type Mailer interface {
	Send(ctx context.Context, message *Message) error
}

type Message struct {
	To      []string
	Subject string
	HTML    string

	Attachments []Attachment
}

type Attachment struct {
	Filename string
	Content  []byte
}

// ResendClient wraps the transactional email provider's HTTP API.
type ResendClient struct {
	cfg    config.MailConfig
	client *http.Client
}

func NewResendClient(cfg config.MailConfig) *ResendClient {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.resend.com"
	}

	return &ResendClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *ResendClient) Send(ctx context.Context, message *Message) error {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return errors.New("mail api key is not configured")
	}
	if len(message.To) == 0 {
		return errors.New("mail message has no recipients")
	}

	type wireAttachment struct {
		Filename string `json:"filename"`
		Content  string `json:"content"`
	}
	payload := struct {
		From        string           `json:"from"`
		To          []string         `json:"to"`
		Subject     string           `json:"subject"`
		HTML        string           `json:"html"`
		Attachments []wireAttachment `json:"attachments,omitempty"`
	}{
		From:    c.cfg.FromAddress,
		To:      message.To,
		Subject: message.Subject,
		HTML:    message.HTML,
	}
	for _, attachment := range message.Attachments {
		payload.Attachments = append(payload.Attachments, wireAttachment{
			Filename: attachment.Filename,
			Content:  base64.StdEncoding.EncodeToString(attachment.Content),
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("mail send failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	return nil
}
