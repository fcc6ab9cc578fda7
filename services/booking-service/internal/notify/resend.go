package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

const defaultResendBaseURL = "https://api.resend.com/"

// ResendSender sends through the Resend API.
type ResendSender struct {
	client *resend.Client
	apiKey string
	from   string
}

// NewResendSender builds a sender against baseURL (the API root, empty for
// the public endpoint).
func NewResendSender(baseURL, apiKey, from string) (*ResendSender, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultResendBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("resend base url: %w", err)
	}
	apiKey = strings.TrimSpace(apiKey)
	client := resend.NewCustomClient(&http.Client{Timeout: 10 * time.Second}, apiKey)
	client.BaseURL = u
	return &ResendSender{client: client, apiKey: apiKey, from: strings.TrimSpace(from)}, nil
}

func (s *ResendSender) ProviderID() string {
	return "resend"
}

func (s *ResendSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if s.apiKey == "" {
		return errors.New("resend api key not configured")
	}
	_, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    htmlBody,
	})
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}
