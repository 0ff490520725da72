package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultGraphURL = "https://graph.facebook.com"

// CloudSender envía mensajes de texto por la Cloud API de Meta.
type CloudSender struct {
	baseURL       string
	version       string
	phoneNumberID string
	token         string
	client        *http.Client
	logger        *zap.Logger
}

func NewCloudSender(baseURL, version, phoneNumberID, token string, logger *zap.Logger) *CloudSender {
	if baseURL == "" {
		baseURL = defaultGraphURL
	}
	if version == "" {
		version = "v19.0"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CloudSender{
		baseURL:       strings.TrimRight(baseURL, "/"),
		version:       version,
		phoneNumberID: phoneNumberID,
		token:         token,
		client:        &http.Client{Timeout: 15 * time.Second},
		logger:        logger,
	}
}

type cloudTextMessage struct {
	MessagingProduct string    `json:"messaging_product"`
	RecipientType    string    `json:"recipient_type"`
	To               string    `json:"to"`
	Type             string    `json:"type"`
	Text             cloudText `json:"text"`
}

type cloudText struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url"`
}

type cloudSendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

func (s *CloudSender) Send(ctx context.Context, to, body string) (string, error) {
	recipient := CloudRecipient(to)
	if recipient == "" {
		return "", fmt.Errorf("cloud api: empty recipient")
	}
	payload, err := json.Marshal(cloudTextMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               recipient,
		Type:             "text",
		Text:             cloudText{Body: body, PreviewURL: strings.Contains(body, "http")},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s/%s/messages", s.baseURL, s.version, s.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		s.logger.Warn("cloud api send failed", zap.Int("status", resp.StatusCode), zap.String("to", recipient))
		return "", fmt.Errorf("cloud api error: %s - %s", resp.Status, string(respBody))
	}

	var parsed cloudSendResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("cloud api: decode response: %w", err)
	}
	if len(parsed.Messages) == 0 {
		return "", fmt.Errorf("cloud api: response without message id")
	}
	return parsed.Messages[0].ID, nil
}
