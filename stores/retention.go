package stores

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// RetentionSweeper periodically deletes conversations (and their messages)
// that have not been updated within the retention window.
type RetentionSweeper struct {
	store     MessageStore
	retention time.Duration
	schedule  string
	cron      *cron.Cron
	entryID   cron.EntryID
}

// NewRetentionSweeper creates a sweeper. schedule is a cron expression
// (e.g. "0 3 * * *" for 3am daily); retention is how long an idle
// conversation is kept.
func NewRetentionSweeper(store MessageStore, schedule string, retention time.Duration) *RetentionSweeper {
	return &RetentionSweeper{
		store:     store,
		retention: retention,
		schedule:  schedule,
	}
}

// Start registers the sweep with a cron scheduler and begins running it.
func (r *RetentionSweeper) Start() error {
	if r.store == nil {
		return fmt.Errorf("retention sweeper requires a store")
	}
	if r.retention <= 0 {
		return fmt.Errorf("retention window must be positive, got %v", r.retention)
	}

	r.cron = cron.New()
	id, err := r.cron.AddFunc(r.schedule, func() {
		if err := r.SweepOnce(); err != nil {
			log.Printf("[RETENTION] Sweep failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", r.schedule, err)
	}
	r.entryID = id
	r.cron.Start()
	return nil
}

// SweepOnce runs a single retention pass immediately.
func (r *RetentionSweeper) SweepOnce() error {
	cutoff := time.Now().Add(-r.retention)
	removed, err := r.store.DeleteConversationsBefore(cutoff)
	if err != nil {
		return err
	}
	if removed > 0 {
		log.Printf("[RETENTION] Removed %d conversations idle since %s", removed, cutoff.Format(time.RFC3339))
	}
	return nil
}

// Stop halts the scheduler. A sweep already in flight runs to completion.
func (r *RetentionSweeper) Stop() {
	if r.cron != nil {
		r.cron.Stop()
	}
}
