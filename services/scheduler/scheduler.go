package scheduler

import (
	"Arena/services/matchmaking"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Job is one periodic maintenance task. Run receives the tick time.
type Job struct {
	Name string
	Run  func(now time.Time)
}

type QueueSweeper interface {
	Sweep(now time.Time) []matchmaking.QueueEntry
}

type InvitationCleaner interface {
	Cleanup(now time.Time) int
}

type SessionReaper interface {
	Reap(now time.Time) int
}

// MaintenanceJobs are the lobby and session housekeeping jobs. The per-entry
// timers normally do this work; these catch anything a timer missed.
func MaintenanceJobs(queue QueueSweeper, invitations InvitationCleaner, games SessionReaper) []Job {
	return []Job{
		{Name: "queue-sweep", Run: func(now time.Time) {
			if expired := queue.Sweep(now); len(expired) > 0 {
				log.Printf("[Scheduler] Swept %d expired queue entries", len(expired))
			}
		}},
		{Name: "invitation-cleanup", Run: func(now time.Time) {
			if n := invitations.Cleanup(now); n > 0 {
				log.Printf("[Scheduler] Removed %d settled invitations", n)
			}
		}},
		{Name: "session-reap", Run: func(now time.Time) {
			if n := games.Reap(now); n > 0 {
				log.Printf("[Scheduler] Reaped %d finished sessions", n)
			}
		}},
	}
}

type Scheduler struct {
	sched gocron.Scheduler
}

// Start registers every job at interval and starts running them.
func Start(interval time.Duration, jobs ...Job) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("error creating scheduler: %w", err)
	}

	for _, job := range jobs {
		run := job.Run
		_, err := sched.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(func() { run(time.Now()) }),
			gocron.WithName(job.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			sched.Shutdown()
			return nil, fmt.Errorf("error scheduling %s: %w", job.Name, err)
		}
	}

	sched.Start()
	log.Printf("[Scheduler] Started %d jobs every %s", len(jobs), interval)
	return &Scheduler{sched: sched}, nil
}

func (s *Scheduler) Shutdown() error {
	if s == nil {
		return nil
	}
	return s.sched.Shutdown()
}
