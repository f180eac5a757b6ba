package billing

import (
	"database/sql"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/turnstile/pkg/observability"
)

// ExpirySweeper periodically scans for paid subscriptions that lapse
// soon, logging them and exposing the count as a gauge so operators
// can watch for renewal drop-off. It never mutates state; lapsed
// subscriptions simply stop matching the active-subscription query.
type ExpirySweeper struct {
	db            *sql.DB
	subscriptions SubscriptionRepo
	log           *observability.Logger
	metrics       *observability.Metrics
	window        time.Duration
	cron          *cron.Cron
}

// NewExpirySweeper creates a sweeper that looks window ahead for
// expiring subscriptions
func NewExpirySweeper(db *sql.DB, log *observability.Logger, metrics *observability.Metrics, window time.Duration) *ExpirySweeper {
	return &ExpirySweeper{
		db:            db,
		subscriptions: NewPostgresSubscriptionRepo(),
		log:           log,
		metrics:       metrics,
		window:        window,
		cron:          cron.New(),
	}
}

// Start schedules the daily sweep. It returns immediately; the cron
// scheduler runs in its own goroutine.
func (s *ExpirySweeper) Start() error {
	if _, err := s.cron.AddFunc("@daily", s.Sweep); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish
func (s *ExpirySweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep runs one scan. Exported so operators can trigger it manually.
func (s *ExpirySweeper) Sweep() {
	now := time.Now().UTC()
	expiring, err := s.subscriptions.ListExpiringBefore(s.db, now, now.Add(s.window))
	if err != nil {
		s.log.WithError(err).Warn("expiry sweep failed")
		return
	}

	for _, sub := range expiring {
		s.log.WithFields(map[string]interface{}{
			"tenant_id":       sub.TenantID,
			"subscription_id": sub.ID,
			"plan":            string(sub.Plan),
			"end_date":        sub.EndDate.Format(time.RFC3339),
		}).Info("subscription expiring soon")
	}

	if s.metrics != nil {
		s.metrics.SubscriptionsExpiringSoon.Set(float64(len(expiring)))
	}
}
