package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPProvider sends mail through a JSON HTTP email API (Resend-style:
// POST /emails with a bearer key, response carries the message id).
type HTTPProvider struct {
	BaseURL string
	APIKey  string
	From    string
	client  *http.Client
}

func NewHTTPProvider(baseURL, apiKey, from string) *HTTPProvider {
	return &HTTPProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		From:    from,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type sendReq struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

type sendResp struct {
	ID string `json:"id"`
}

func (p *HTTPProvider) Send(ctx context.Context, msg Message) (string, error) {
	body, _ := json.Marshal(sendReq{
		From:    p.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTMLBody,
		Text:    msg.TextBody,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("mailer: send failed: %d %s", resp.StatusCode, string(respBody))
	}
	var out sendResp
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("mailer: provider returned empty message id")
	}
	return out.ID, nil
}
