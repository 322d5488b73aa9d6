package queue

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Worker drives the queue: it runs the processing loop and a gocron scheduler
// that enqueues the recurring batch jobs. The engine itself holds no timers;
// this is the only place cadence lives.
type Worker struct {
	queue     *Queue
	scheduler *gocron.Scheduler
}

// NewWorker creates a new worker around a queue
func NewWorker(q *Queue) *Worker {
	return &Worker{
		queue:     q,
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

// ScheduleRecurring registers a recurring enqueue of the given job type
func (w *Worker) ScheduleRecurring(jobType JobType, everyMinutes int) error {
	_, err := w.scheduler.Every(everyMinutes).Minutes().Do(func() {
		if _, err := w.queue.EnqueueJob(jobType, map[string]interface{}{
			"scheduled_at": time.Now(),
		}); err != nil {
			log.Printf("Failed to enqueue recurring job %s: %v", jobType, err)
		}
	})
	return err
}

// Start begins scheduling and processing. Blocks until Stop is called.
func (w *Worker) Start() {
	w.scheduler.StartAsync()
	log.Printf("Worker started")
	w.queue.ProcessJobs()
}

// Stop stops the scheduler and the processing loop
func (w *Worker) Stop() {
	w.scheduler.Stop()
	w.queue.StopProcessing()
	log.Printf("Worker stopped")
}
