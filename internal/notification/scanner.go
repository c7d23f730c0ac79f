package notification

import (
	"context"
	"log"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"github.com/lu123321/counseling-app/config"
	"github.com/lu123321/counseling-app/internal/recurrence"
	"github.com/lu123321/counseling-app/internal/reminder"
	"github.com/lu123321/counseling-app/internal/store"
)

// scanHorizonDays is how far ahead of "now" the scanner expands
// occurrences. It must cover the longest reminder lead (one day).
const scanHorizonDays = 2

// Scanner periodically walks the event store for due reminders and
// hands them to the worker pool for delivery. The per-event reminder
// computation itself lives in the reminder package; the scanner owns
// only the loop and the dispatch bookkeeping.
type Scanner struct {
	cfg        *config.Config
	store      store.EventStore
	loc        *time.Location
	workerPool *WorkerPool
}

// NewScanner creates and initializes a reminder scanner.
func NewScanner(cfg *config.Config, s store.EventStore) *Scanner {
	loc, err := time.LoadLocation(cfg.Practice.Timezone)
	if err != nil {
		log.Printf("Warning: invalid practice timezone %q: %v. Falling back to UTC.", cfg.Practice.Timezone, err)
		loc = time.UTC
	}

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	return &Scanner{
		cfg:        cfg,
		store:      s,
		loc:        loc,
		workerPool: NewWorkerPool(cfg.WorkerPool.Size, s.DB(), &webpushOptions),
	}
}

// Run starts the reminder scan loop.
func (s *Scanner) Run(ctx context.Context) {
	if !s.cfg.Reminder.Enabled {
		log.Println("Reminder scanner is disabled. Not starting.")
		return
	}
	log.Println("Starting reminder scanner...")

	s.workerPool.Start(ctx)

	s.ScanAt(ctx, time.Now().In(s.loc))

	timer := time.NewTimer(s.cfg.Reminder.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Reminder scanner shutting down.")
			return
		case <-timer.C:
			s.ScanAt(ctx, time.Now().In(s.loc))
			timer.Reset(s.cfg.Reminder.Interval)
		}
	}
}

// ScanAt performs a single scan cycle relative to the given time,
// dispatching every due reminder and marking it fired through the
// event store.
func (s *Scanner) ScanAt(ctx context.Context, now time.Time) {
	windowStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	windowEnd := windowStart.AddDate(0, 0, scanHorizonDays)

	events, err := s.store.ListInRange(ctx, windowStart, windowEnd)
	if err != nil {
		log.Printf("Error listing events for reminder scan: %v", err)
		return
	}

	for i := range events {
		event := &events[i]
		if event.ReminderFired {
			continue
		}

		occurrences, err := recurrence.Expand(event.Recurrence(), event.StartAt.In(s.loc), event.EndAt.In(s.loc), windowStart, windowEnd)
		if err != nil {
			log.Printf("Error expanding event %d during reminder scan: %v", event.ID, err)
			continue
		}

		// Only the first occurrence that has not yet ended is tracked;
		// later ones wait for the flag to clear.
		for _, occ := range occurrences {
			if !occ.End.After(now) {
				continue
			}
			if reminder.Due(event, occ.Start, now) {
				s.workerPool.Dispatch(ReminderJob{
					EventID:   event.ID,
					Title:     event.Title,
					StartText: occ.Start.Format("15:04"),
				})
				fired := true
				if _, err := s.store.Update(ctx, event.ID, store.EventPatch{ReminderFired: &fired}); err != nil {
					log.Printf("Error marking reminder fired for event %d: %v", event.ID, err)
				}
			}
			break
		}
	}
}
