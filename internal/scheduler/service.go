package scheduler

import (
	"time"

	"github.com/commentpulse/comment-pulse/internal/cache"
	"github.com/commentpulse/comment-pulse/internal/config"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Service runs the periodic cache expiry sweep
type Service struct {
	config *config.Config
	store  *cache.Store
	cron   *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, store *cache.Store) *Service {
	return &Service{
		config: cfg,
		store:  store,
		cron:   cron.New(),
	}
}

// Start begins the hourly cache sweep
func (s *Service) Start() error {
	maxAge := time.Duration(s.config.CacheTTLHours) * time.Hour

	_, err := s.cron.AddFunc("@hourly", func() {
		logrus.Debug("Starting scheduled cache sweep")
		s.store.Sweep(maxAge)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started, sweeping cache entries older than %v every hour", maxAge)
	return nil
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
