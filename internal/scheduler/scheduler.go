package scheduler

import (
	"context"
	"log"
	"time"

	"sitework/internal/service"
)

// Scheduler runs the maintenance jobs in-process: digests and retention
// cleanup once a day at a fixed UTC hour, weekly digests on Mondays. The
// /cron endpoints stay available for external schedulers; claim tokens make
// the overlap safe.
type Scheduler struct {
	digestSvc     *service.DigestService
	cleanupSvc    *service.CleanupService
	reportSvc     *service.ReportService
	hourUTC       int
	retentionDays int
	cancel        context.CancelFunc
	done          chan struct{}
}

func New(digestSvc *service.DigestService, cleanupSvc *service.CleanupService, reportSvc *service.ReportService, hourUTC, retentionDays int) *Scheduler {
	return &Scheduler{
		digestSvc:     digestSvc,
		cleanupSvc:    cleanupSvc,
		reportSvc:     reportSvc,
		hourUTC:       hourUTC,
		retentionDays: retentionDays,
	}
}

func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx)
	log.Printf("[scheduler] started: daily run at %02d:00 UTC", s.hourUTC)
}

func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	log.Printf("[scheduler] stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)
	for {
		next := nextRun(time.Now().UTC(), s.hourUTC)
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.runAll(ctx, next)
		}
	}
}

// nextRun returns the next instant at hourUTC:00 strictly after now.
func nextRun(now time.Time, hourUTC int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hourUTC, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s *Scheduler) runAll(ctx context.Context, at time.Time) {
	if res, err := s.digestSvc.RunDigest(ctx, "daily"); err != nil {
		log.Printf("[scheduler] daily digest failed: %v", err)
	} else {
		log.Printf("[scheduler] daily digest: sent=%d processed=%d errors=%d", res.DigestsSent, res.NotificationsProcessed, len(res.Errors))
	}

	if at.Weekday() == time.Monday {
		if res, err := s.digestSvc.RunDigest(ctx, "weekly"); err != nil {
			log.Printf("[scheduler] weekly digest failed: %v", err)
		} else {
			log.Printf("[scheduler] weekly digest: sent=%d processed=%d errors=%d", res.DigestsSent, res.NotificationsProcessed, len(res.Errors))
		}
	}

	if deleted, cutoff, err := s.cleanupSvc.CleanupOldNotifications(s.retentionDays); err != nil {
		log.Printf("[scheduler] notification cleanup failed: %v", err)
	} else if deleted > 0 {
		log.Printf("[scheduler] notification cleanup: deleted=%d cutoff=%s", deleted, cutoff.Format(time.RFC3339))
	}

	if res, err := s.reportSvc.CleanupExpiredReports(ctx); err != nil {
		log.Printf("[scheduler] report cleanup failed: %v", err)
	} else if res.Deleted > 0 || len(res.Errors) > 0 {
		log.Printf("[scheduler] report cleanup: scanned=%d deleted=%d errors=%d", res.Scanned, res.Deleted, len(res.Errors))
	}
}
