package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/commentpulse/comment-pulse/internal/config"
	"github.com/commentpulse/comment-pulse/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Service delivers finished analysis summaries via the configured channels.
// Delivery is best-effort; the analysis result never depends on it.
type Service struct {
	config *config.Config
	client *resty.Client
}

type webhookPayload struct {
	VideoID        string               `json:"video_id"`
	TotalComments  int                  `json:"total_comments"`
	Quality        models.ResultQuality `json:"result_quality"`
	Summary        string               `json:"summary"`
	SentimentCount map[string]int       `json:"sentiment_distribution"`
	GeneratedAt    time.Time            `json:"generated_at"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// Enabled reports whether any delivery channel is configured
func (s *Service) Enabled() bool {
	return s.config.NotificationEmail != "" || s.config.WebhookURL != ""
}

// SendSummary delivers the analysis summary for videoID via every
// configured channel, collecting per-channel failures
func (s *Service) SendSummary(videoID string, bundle *models.MetricsBundle) error {
	var errs []string

	if s.config.WebhookURL != "" {
		if err := s.sendWebhook(videoID, bundle); err != nil {
			logrus.Errorf("Failed to send webhook notification: %v", err)
			errs = append(errs, fmt.Sprintf("webhook: %v", err))
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(videoID, bundle); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errs = append(errs, fmt.Sprintf("email: %v", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (s *Service) sendWebhook(videoID string, bundle *models.MetricsBundle) error {
	payload := webhookPayload{
		VideoID:        videoID,
		TotalComments:  bundle.TotalComments,
		Quality:        bundle.Quality,
		Summary:        bundle.SummaryParagraph,
		SentimentCount: bundle.SentimentDistribution,
		GeneratedAt:    time.Now().UTC(),
	}

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(s.config.WebhookURL)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	if resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode(), resp.Body())
	}
	return nil
}

func (s *Service) sendEmail(videoID string, bundle *models.MetricsBundle) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", fmt.Sprintf("Comment analysis ready for video %s (%d comments)",
		videoID, bundle.TotalComments))
	m.SetBody("text/plain", bundle.SummaryParagraph)

	dialer := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort,
		s.config.SMTPUsername, s.config.SMTPPassword)

	if err := dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
