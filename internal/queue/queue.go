package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobType defines the type of job
type JobType string

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job represents a background job
type Job struct {
	ID         uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	Type       JobType         `json:"type" gorm:"type:varchar(50);index"`
	Payload    json.RawMessage `json:"payload"`
	Status     JobStatus       `json:"status" gorm:"type:varchar(20);index"`
	RetryCount int             `json:"retry_count" gorm:"default:0"`
	MaxRetries int             `json:"max_retries" gorm:"default:3"`
	NextRetry  *time.Time      `json:"next_retry,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Error      string          `json:"error,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
}

// JobHandler is a function that processes a job
type JobHandler func(ctx context.Context, job Job) (interface{}, error)

// QueueInterface defines the interface for job queue operations
type QueueInterface interface {
	RegisterHandler(jobType JobType, handler JobHandler)
	Enqueue(job *Job) error
	EnqueueJob(jobType JobType, payload interface{}) (string, error)
}

// Queue is a database-backed job queue
type Queue struct {
	db         *gorm.DB
	handlers   map[JobType]JobHandler
	processing bool
}

// NewQueue creates a new queue
func NewQueue(db *gorm.DB) *Queue {
	return &Queue{
		db:       db,
		handlers: make(map[JobType]JobHandler),
	}
}

// RegisterHandler registers a handler for a job type
func (q *Queue) RegisterHandler(jobType JobType, handler JobHandler) {
	q.handlers[jobType] = handler
}

// Enqueue adds a job to the queue
func (q *Queue) Enqueue(job *Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = JobStatusPending
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = 3
	}
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now

	return q.db.Create(job).Error
}

// EnqueueJob marshals a payload and adds a job to the queue
func (q *Queue) EnqueueJob(jobType JobType, payload interface{}) (string, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job payload: %w", err)
	}

	job := &Job{
		Type:    jobType,
		Payload: payloadBytes,
	}
	if err := q.Enqueue(job); err != nil {
		return "", err
	}
	return job.ID.String(), nil
}

// ProcessJobs polls for pending jobs and runs them until StopProcessing is
// called. Failed jobs are retried with exponential backoff up to MaxRetries.
func (q *Queue) ProcessJobs() {
	if q.processing {
		return
	}
	q.processing = true

	for q.processing {
		var job Job
		err := q.db.
			Where("status = ?", JobStatusPending).
			Where("next_retry IS NULL OR next_retry <= ?", time.Now()).
			Order("created_at").
			First(&job).Error
		if err != nil {
			if err != gorm.ErrRecordNotFound {
				log.Printf("Error getting job from queue: %v", err)
			}
			time.Sleep(1 * time.Second)
			continue
		}

		q.processJob(job)
	}
}

// StopProcessing stops the processing loop
func (q *Queue) StopProcessing() {
	q.processing = false
}

func (q *Queue) processJob(job Job) {
	handler, ok := q.handlers[job.Type]
	if !ok {
		log.Printf("No handler registered for job type: %s", job.Type)
		q.markFailed(&job, fmt.Errorf("no handler registered for job type %s", job.Type))
		return
	}

	if err := q.db.Model(&job).Updates(map[string]interface{}{
		"status":     JobStatusProcessing,
		"updated_at": time.Now(),
	}).Error; err != nil {
		log.Printf("Failed to update job status: %v", err)
		return
	}

	result, err := handler(context.Background(), job)
	if err != nil {
		q.handleFailure(&job, err)
		return
	}

	var resultJSON []byte
	if result != nil {
		resultJSON, err = json.Marshal(result)
		if err != nil {
			log.Printf("Failed to marshal job result: %v", err)
		}
	}

	if err := q.db.Model(&job).Updates(map[string]interface{}{
		"status":     JobStatusCompleted,
		"result":     resultJSON,
		"updated_at": time.Now(),
	}).Error; err != nil {
		log.Printf("Failed to update job result: %v", err)
	}
}

func (q *Queue) handleFailure(job *Job, jobErr error) {
	job.RetryCount++
	if job.RetryCount > job.MaxRetries {
		q.markFailed(job, jobErr)
		log.Printf("Job %s failed permanently after %d retries: %v", job.ID, job.RetryCount-1, jobErr)
		return
	}

	// Exponential backoff: 30s, 60s, 120s, ...
	delay := time.Duration(30*(1<<(job.RetryCount-1))) * time.Second
	next := time.Now().Add(delay)

	if err := q.db.Model(job).Updates(map[string]interface{}{
		"status":      JobStatusPending,
		"retry_count": job.RetryCount,
		"next_retry":  next,
		"error":       jobErr.Error(),
		"updated_at":  time.Now(),
	}).Error; err != nil {
		log.Printf("Failed to schedule job retry: %v", err)
	}
	log.Printf("Job %s failed, retry %d/%d scheduled at %s: %v", job.ID, job.RetryCount, job.MaxRetries, next.Format(time.RFC3339), jobErr)
}

func (q *Queue) markFailed(job *Job, jobErr error) {
	if err := q.db.Model(job).Updates(map[string]interface{}{
		"status":     JobStatusFailed,
		"error":      jobErr.Error(),
		"updated_at": time.Now(),
	}).Error; err != nil {
		log.Printf("Failed to update job status: %v", err)
	}
}
