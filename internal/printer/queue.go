package printer

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thereceipt/label-engine/internal/ean13"
	"github.com/thereceipt/label-engine/internal/renderer"
	"github.com/thereceipt/label-engine/pkg/labelformat"
)

// Job statuses
const (
	StatusQueued    = "queued"
	StatusPrinting  = "printing"
	StatusFailed    = "failed"
	StatusCompleted = "completed"
)

// Transport delivers an encoded payload to a printer
type Transport interface {
	Send(printer *Printer, payload []byte) error
}

// PrinterLookup resolves printer IDs
type PrinterLookup interface {
	GetPrinter(id string) *Printer
}

// JobRequest is everything needed to print one or more canvases
type JobRequest struct {
	PrinterID string
	Spec      labelformat.Spec
	Images    []*renderer.RasterImage
	Copies    int
	// OnDone, if set, runs once when the job completes or finally fails
	OnDone func(PrintJob)
}

// PrintJob represents a print job
type PrintJob struct {
	ID            string       `json:"id"`
	PrinterID     string       `json:"printer_id"`
	Spec          string       `json:"spec"`
	Sheets        int          `json:"sheets"`
	Copies        int          `json:"copies"`
	ResolvedCodes []ean13.Code `json:"resolved_codes"`
	Retries       int          `json:"retries"`
	Status        string       `json:"status"`
	Error         string       `json:"error,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	CompletedAt   time.Time    `json:"completed_at,omitempty"`

	spec   labelformat.Spec
	images []*renderer.RasterImage
	onDone func(PrintJob)
}

// PrintQueue sends jobs one at a time and retries failures
type PrintQueue struct {
	jobs       []*PrintJob
	mu         sync.Mutex
	transport  Transport
	printers   PrinterLookup
	maxRetries int
	retryDelay time.Duration
	onUpdate   func(PrintJob)
	ctx        context.Context
	cancel     context.CancelFunc
	wake       chan struct{}
	wg         sync.WaitGroup
}

// NewPrintQueue creates a queue and starts its worker
func NewPrintQueue(transport Transport, printers PrinterLookup, maxRetries int) *PrintQueue {
	if maxRetries < 1 {
		maxRetries = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	q := &PrintQueue{
		jobs:       make([]*PrintJob, 0),
		transport:  transport,
		printers:   printers,
		maxRetries: maxRetries,
		retryDelay: time.Second,
		ctx:        ctx,
		cancel:     cancel,
		wake:       make(chan struct{}, 1),
	}

	q.wg.Add(1)
	go q.worker()

	return q
}

// SetRetryDelay sets the pause before a failed job is retried
func (q *PrintQueue) SetRetryDelay(d time.Duration) {
	q.mu.Lock()
	q.retryDelay = d
	q.mu.Unlock()
}

// OnUpdate registers a callback invoked with a snapshot on every status change
func (q *PrintQueue) OnUpdate(fn func(PrintJob)) {
	q.mu.Lock()
	q.onUpdate = fn
	q.mu.Unlock()
}

// Enqueue adds a print job and returns its ID
func (q *PrintQueue) Enqueue(req JobRequest) (string, error) {
	if len(req.Images) == 0 {
		return "", fmt.Errorf("nothing to print")
	}
	if req.Copies < 1 {
		req.Copies = 1
	}

	var codes []ean13.Code
	for _, img := range req.Images {
		codes = append(codes, img.ResolvedCodes...)
	}

	job := &PrintJob{
		ID:            uuid.New().String(),
		PrinterID:     req.PrinterID,
		Spec:          req.Spec.Name,
		Sheets:        len(req.Images),
		Copies:        req.Copies,
		ResolvedCodes: codes,
		Status:        StatusQueued,
		CreatedAt:     time.Now(),
		spec:          req.Spec,
		images:        req.Images,
		onDone:        req.OnDone,
	}

	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()

	q.notify(job)
	q.signal()
	return job.ID, nil
}

func (q *PrintQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *PrintQueue) worker() {
	defer q.wg.Done()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-q.wake:
		case <-ticker.C:
		}
		for q.processNextJob() {
			if q.ctx.Err() != nil {
				return
			}
		}
	}
}

// processNextJob prints the oldest queued job and reports whether one was found
func (q *PrintQueue) processNextJob() bool {
	q.mu.Lock()
	var job *PrintJob
	for _, j := range q.jobs {
		if j.Status == StatusQueued {
			job = j
			job.Status = StatusPrinting
			break
		}
	}
	q.mu.Unlock()

	if job == nil {
		return false
	}
	q.notify(job)

	err := q.printJob(job)

	q.mu.Lock()
	delay := q.retryDelay
	retry := false
	if err != nil {
		job.Retries++
		job.Error = err.Error()

		if job.Retries >= q.maxRetries {
			job.Status = StatusFailed
			job.CompletedAt = time.Now()
			log.Printf("❌ Print job %s failed after %d retries: %v", job.ID, job.Retries, err)
		} else {
			job.Status = StatusQueued
			retry = true
			log.Printf("⚠️  Print job %s failed, retrying (%d/%d): %v", job.ID, job.Retries, q.maxRetries, err)
		}
	} else {
		job.Status = StatusCompleted
		job.Error = ""
		job.CompletedAt = time.Now()
		log.Printf("✅ Print job %s completed (%d sheet(s) x %d)", job.ID, job.Sheets, job.Copies)
	}
	var done func(PrintJob)
	var snapshot PrintJob
	if !retry {
		done = job.onDone
		snapshot = *job
	}
	q.mu.Unlock()

	q.notify(job)
	if done != nil {
		done(snapshot)
	}

	if retry {
		select {
		case <-q.ctx.Done():
		case <-time.After(delay):
		}
	}
	return true
}

func (q *PrintQueue) printJob(job *PrintJob) error {
	printer := q.printers.GetPrinter(job.PrinterID)
	if printer == nil {
		return fmt.Errorf("printer not found: %s", job.PrinterID)
	}

	payload, err := Encode(printer.Protocol, job.images, job.spec, job.Copies)
	if err != nil {
		return err
	}

	return q.transport.Send(printer, payload)
}

func (q *PrintQueue) notify(job *PrintJob) {
	q.mu.Lock()
	fn := q.onUpdate
	snapshot := *job
	q.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
}

// GetJob returns a copy of a job, or nil
func (q *PrintQueue) GetJob(jobID string) *PrintJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, job := range q.jobs {
		if job.ID == jobID {
			jobCopy := *job
			return &jobCopy
		}
	}
	return nil
}

// GetAllJobs returns copies of all jobs in submission order
func (q *PrintQueue) GetAllJobs() []*PrintJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	jobs := make([]*PrintJob, len(q.jobs))
	for i, job := range q.jobs {
		jobCopy := *job
		jobs[i] = &jobCopy
	}
	return jobs
}

// ClearCompleted removes completed jobs and returns how many were removed
func (q *PrintQueue) ClearCompleted() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	filtered := make([]*PrintJob, 0, len(q.jobs))
	for _, job := range q.jobs {
		if job.Status != StatusCompleted {
			filtered = append(filtered, job)
		}
	}

	removed := len(q.jobs) - len(filtered)
	q.jobs = filtered
	return removed
}

// Stop stops the worker
func (q *PrintQueue) Stop() {
	q.cancel()
	q.wg.Wait()
}
