// Package labels ties rendering, the item store and the print queue together for the API and command layers
package labels

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/thereceipt/label-engine/internal/ean13"
	"github.com/thereceipt/label-engine/internal/printer"
	"github.com/thereceipt/label-engine/internal/renderer"
	"github.com/thereceipt/label-engine/internal/store"
	"github.com/thereceipt/label-engine/pkg/labelformat"
)

// ErrNothingToPrint is returned when no item has stock
var ErrNothingToPrint = errors.New("no items with stock to print")

// Items is the subset of the item store the service needs
type Items interface {
	Get(ctx context.Context, name string) (*store.Item, error)
	List(ctx context.Context) ([]store.Item, error)
	RecordPrinted(ctx context.Context, name string, code ean13.Code) error
}

// Queue accepts print jobs
type Queue interface {
	Enqueue(req printer.JobRequest) (string, error)
}

// Service renders and prints labels
type Service struct {
	renderer    *renderer.Renderer
	items       Items
	queue       Queue
	printers    printer.PrinterLookup
	defaultSpec string
	workers     int
	logger      *log.Logger
}

// Config wires a Service
type Config struct {
	Renderer    *renderer.Renderer
	Items       Items
	Queue       Queue
	Printers    printer.PrinterLookup
	DefaultSpec string
	Workers     int
	Logger      *log.Logger
}

// NewService creates a service. Items, Queue and Printers may be nil for preview-only use.
func NewService(cfg Config) *Service {
	s := &Service{
		renderer:    cfg.Renderer,
		items:       cfg.Items,
		queue:       cfg.Queue,
		printers:    cfg.Printers,
		defaultSpec: cfg.DefaultSpec,
		workers:     cfg.Workers,
		logger:      cfg.Logger,
	}
	if s.renderer == nil {
		s.renderer = renderer.New()
	}
	if s.workers <= 0 {
		s.workers = 1
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	return s
}

// PrintResult describes an enqueued print
type PrintResult struct {
	JobID         string       `json:"job_id"`
	PrinterID     string       `json:"printer_id"`
	Spec          string       `json:"spec"`
	Sheets        int          `json:"sheets"`
	Copies        int          `json:"copies"`
	ResolvedCodes []ean13.Code `json:"resolved_codes"`
}

// ResolveSpec picks the label spec: the requested name first, then the
// printer's saved preset, then the configured default.
func (s *Service) ResolveSpec(requested, printerID string) (labelformat.Spec, error) {
	name := requested
	if name == "" && printerID != "" && s.printers != nil {
		if p := s.printers.GetPrinter(printerID); p != nil {
			name = p.LabelSpec
		}
	}
	if name == "" {
		name = s.defaultSpec
	}
	return labelformat.LookupSpec(name)
}

// Preview composes a job without printing it. No items gives a blank canvas.
func (s *Service) Preview(job *labelformat.Job) (*renderer.RasterImage, error) {
	spec, err := s.ResolveSpec(job.Spec, "")
	if err != nil {
		return nil, err
	}
	if len(job.Items) > 0 {
		if err := checkItems(job.Items, spec); err != nil {
			return nil, err
		}
	}
	return s.renderer.Compose(job.Items, spec), nil
}

// PrintJob composes and enqueues an ad-hoc job
func (s *Service) PrintJob(printerID string, job *labelformat.Job) (*PrintResult, error) {
	spec, err := s.ResolveSpec(job.Spec, printerID)
	if err != nil {
		return nil, err
	}
	if err := checkItems(job.Items, spec); err != nil {
		return nil, err
	}
	img := s.renderer.Compose(job.Items, spec)
	return s.enqueue(printerID, spec, []*renderer.RasterImage{img}, job.Copies, nil)
}

// PrintStored prints one sheet of a stored item, filling min(slots, stock)
// slots, and records the code that was printed.
func (s *Service) PrintStored(ctx context.Context, printerID, name, specName string, copies int) (*PrintResult, error) {
	if s.items == nil {
		return nil, fmt.Errorf("item store not configured")
	}
	item, err := s.items.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	spec, err := s.ResolveSpec(specName, printerID)
	if err != nil {
		return nil, err
	}

	sheets := renderer.StockSheets([]labelformat.Item{item.Label()}, spec.Slots)
	if len(sheets) == 0 {
		return nil, ErrNothingToPrint
	}
	img := s.renderer.Compose(sheets[0], spec)

	return s.enqueue(printerID, spec, []*renderer.RasterImage{img}, copies,
		s.recordWhenPrinted([]string{item.Name}, []*renderer.RasterImage{img}))
}

// PrintAll prints one sheet per stocked item. Sheets are composed in parallel
// and sent as a single job.
func (s *Service) PrintAll(ctx context.Context, printerID, specName string) (*PrintResult, error) {
	if s.items == nil {
		return nil, fmt.Errorf("item store not configured")
	}
	stored, err := s.items.List(ctx)
	if err != nil {
		return nil, err
	}

	spec, err := s.ResolveSpec(specName, printerID)
	if err != nil {
		return nil, err
	}

	var (
		labelItems []labelformat.Item
		names      []string
	)
	for _, it := range stored {
		if it.Stock > 0 {
			labelItems = append(labelItems, it.Label())
			names = append(names, it.Name)
		}
	}
	sheets := renderer.StockSheets(labelItems, spec.Slots)
	if len(sheets) == 0 {
		return nil, ErrNothingToPrint
	}

	images, err := s.renderer.ComposeAll(ctx, sheets, spec, s.workers)
	if err != nil {
		return nil, fmt.Errorf("failed to compose labels: %w", err)
	}

	res, err := s.enqueue(printerID, spec, images, 1, s.recordWhenPrinted(names, images))
	if err != nil {
		return nil, err
	}
	s.logger.Printf("🖨️  Queued %d item sheet(s) on %s", len(images), printerID)
	return res, nil
}

func (s *Service) enqueue(printerID string, spec labelformat.Spec, images []*renderer.RasterImage, copies int, done func(printer.PrintJob)) (*PrintResult, error) {
	if s.queue == nil {
		return nil, fmt.Errorf("print queue not configured")
	}
	if printerID == "" {
		return nil, fmt.Errorf("printer id is required")
	}
	if s.printers != nil && s.printers.GetPrinter(printerID) == nil {
		return nil, fmt.Errorf("printer not found: %s", printerID)
	}
	if copies < 1 {
		copies = 1
	}

	jobID, err := s.queue.Enqueue(printer.JobRequest{
		PrinterID: printerID,
		Spec:      spec,
		Images:    images,
		Copies:    copies,
		OnDone:    done,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue print job: %w", err)
	}

	var codes []ean13.Code
	for _, img := range images {
		codes = append(codes, img.ResolvedCodes...)
	}
	return &PrintResult{
		JobID:         jobID,
		PrinterID:     printerID,
		Spec:          spec.Name,
		Sheets:        len(images),
		Copies:        copies,
		ResolvedCodes: codes,
	}, nil
}

// recordWhenPrinted returns a job callback that, once the job completes,
// stores the code drawn in the first slot of each item's sheet so stored and
// printed codes match. Failed jobs record nothing.
func (s *Service) recordWhenPrinted(names []string, images []*renderer.RasterImage) func(printer.PrintJob) {
	return func(job printer.PrintJob) {
		if job.Status != printer.StatusCompleted {
			return
		}
		for i, img := range images {
			if len(img.ResolvedCodes) == 0 {
				continue
			}
			if err := s.items.RecordPrinted(context.Background(), names[i], img.ResolvedCodes[0]); err != nil {
				s.logger.Printf("⚠️  Failed to record printed code for %s: %v", names[i], err)
			}
		}
	}
}

func checkItems(items []labelformat.Item, spec labelformat.Spec) error {
	if len(items) == 0 {
		return fmt.Errorf("at least one item is required")
	}
	if len(items) > spec.Slots {
		return fmt.Errorf("too many items: %d (spec %s holds %d per sheet)", len(items), spec.Name, spec.Slots)
	}
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("item[%d]: %w", i, err)
		}
	}
	return nil
}
