package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kjannette/trahn-planner/internal/httputil"
	"github.com/kjannette/trahn-planner/internal/logger"
	"github.com/kjannette/trahn-planner/internal/models"
)

const DefaultBotName = "TrahnGridPlanner"

type Sender struct {
	webhookURL string
	botName    string
	httpClient *http.Client
	retry      httputil.RetryConfig
	log        *logrus.Entry
}

func NewSender(webhookURL, botName string) *Sender {
	if botName == "" {
		botName = DefaultBotName
	}
	return &Sender{
		webhookURL: webhookURL,
		botName:    botName,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    5 * time.Second,
		},
		log: logger.Component("notify"),
	}
}

// Send logs msg and posts it to the webhook, if configured. Failures are
// logged, never returned.
func (s *Sender) Send(msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.SendContext(ctx, msg); err != nil {
		s.log.Errorf("Failed to send notification after retries: %v", err)
	}
}

func (s *Sender) SendContext(ctx context.Context, msg string) error {
	formatted := fmt.Sprintf("[%s] %s", s.botName, msg)
	s.log.Info(formatted)

	if s.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(s.formatPayload(formatted))
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	resp, err := httputil.Do(ctx, s.httpClient, s.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// SendPlan posts the grid table for a calculated plan.
func (s *Sender) SendPlan(m models.MarketSnapshot, table string, warnings []string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Grid plan %s %s (price $%.2f, RSI %.1f, volume %s)\n",
		m.Symbol, m.ContractExpiry, m.CurrentPrice, m.RSI, m.VolumeTrend)
	b.WriteString("```\n")
	b.WriteString(table)
	b.WriteString("\n```")
	for _, w := range warnings {
		b.WriteString("\nWARNING: ")
		b.WriteString(w)
	}
	s.Send(b.String())
}

// SendDemoNotice reports that recommendations fell back to demo data.
func (s *Sender) SendDemoNotice(reason string) {
	s.Send("Recommendation service unavailable, showing demo data: " + reason)
}

func (s *Sender) formatPayload(msg string) map[string]string {
	if strings.Contains(s.webhookURL, "discord") {
		return map[string]string{
			"content":  msg,
			"username": s.botName,
		}
	}
	text := msg
	if !strings.Contains(msg, "```") {
		text = fmt.Sprintf("`%s`", msg)
	}
	return map[string]string{
		"text":     text,
		"username": s.botName,
	}
}

func (s *Sender) Enabled() bool {
	return s.webhookURL != ""
}
