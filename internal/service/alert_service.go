package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// AlertService delivers operational alerts (code space exhaustion,
// summary persistence failures). These are on-call signals, not user errors.
type AlertService interface {
	Alert(subject string, message string)
}

// LogAlertService is used when alert mail is not configured.
type LogAlertService struct{}

func (s *LogAlertService) Alert(subject, message string) {
	log.Printf("[AlertService] ALERT: %s - %s", subject, message)
}

// ResendAlertService delivers alerts via Resend REST API.
type ResendAlertService struct {
	from   string
	to     []string
	client *resend.Client
}

func NewResendAlertService(apiKey, from string, to []string) (*ResendAlertService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" || len(to) == 0 {
		return nil, fmt.Errorf("alert from and to addresses are required")
	}
	return &ResendAlertService{
		from:   from,
		to:     to,
		client: resend.NewClient(apiKey),
	}, nil
}

// Alert is fire-and-forget: the engine must never block on the mail API.
func (s *ResendAlertService) Alert(subject, message string) {
	log.Printf("[AlertService] ALERT: %s - %s", subject, message)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		params := &resend.SendEmailRequest{
			From:    s.from,
			To:      s.to,
			Subject: fmt.Sprintf("[live-api] %s", subject),
			Text:    message,
		}

		var lastErr error
		for attempt := 0; attempt < 3; attempt++ {
			_, err := s.client.Emails.Send(params)
			if err == nil {
				return
			}
			lastErr = err

			if wait, ok := resendRetryDelay(err, attempt); ok {
				select {
				case <-ctx.Done():
					return
				case <-time.After(wait):
					continue
				}
			}
			break
		}

		log.Printf("[AlertService] failed to deliver alert %q: %v", subject, lastErr)
	}()
}

func resendRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "temporar") {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	return 0, false
}
