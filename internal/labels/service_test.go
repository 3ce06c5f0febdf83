package labels

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereceipt/label-engine/internal/ean13"
	"github.com/thereceipt/label-engine/internal/printer"
	"github.com/thereceipt/label-engine/internal/renderer"
	"github.com/thereceipt/label-engine/internal/store"
	"github.com/thereceipt/label-engine/pkg/labelformat"
)

type fakeItems struct {
	mu       sync.Mutex
	items    []store.Item
	recorded map[string]ean13.Code
}

func (f *fakeItems) Get(_ context.Context, name string) (*store.Item, error) {
	for _, it := range f.items {
		if it.Name == name {
			it := it
			return &it, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeItems) List(context.Context) ([]store.Item, error) {
	return f.items, nil
}

func (f *fakeItems) RecordPrinted(_ context.Context, name string, code ean13.Code) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recorded == nil {
		f.recorded = make(map[string]ean13.Code)
	}
	f.recorded[name] = code
	return nil
}

type fakeQueue struct {
	requests []printer.JobRequest
}

func (q *fakeQueue) Enqueue(req printer.JobRequest) (string, error) {
	q.requests = append(q.requests, req)
	return "job-1", nil
}

// finish reports the last request as done with the given status
func (q *fakeQueue) finish(status string) {
	req := q.requests[len(q.requests)-1]
	if req.OnDone != nil {
		req.OnDone(printer.PrintJob{ID: "job-1", PrinterID: req.PrinterID, Status: status})
	}
}

type fakePrinters map[string]*printer.Printer

func (f fakePrinters) GetPrinter(id string) *printer.Printer {
	return f[id]
}

func newTestService(items *fakeItems, q *fakeQueue) *Service {
	logger := log.New(io.Discard, "", 0)
	return NewService(Config{
		Renderer: renderer.New(renderer.WithLogger(logger)),
		Items:    items,
		Queue:    q,
		Printers: fakePrinters{
			"p1": {ID: "p1", Protocol: printer.ProtocolESCPOS},
			"p2": {ID: "p2", Protocol: printer.ProtocolTSPL, LabelSpec: "compact"},
		},
		DefaultSpec: "standard",
		Workers:     2,
		Logger:      logger,
	})
}

func TestResolveSpec_Precedence(t *testing.T) {
	s := newTestService(&fakeItems{}, &fakeQueue{})

	spec, err := s.ResolveSpec("", "")
	require.NoError(t, err)
	assert.Equal(t, "standard", spec.Name)

	spec, err = s.ResolveSpec("", "p2")
	require.NoError(t, err)
	assert.Equal(t, "compact", spec.Name, "printer preset beats default")

	spec, err = s.ResolveSpec("standard", "p2")
	require.NoError(t, err)
	assert.Equal(t, "standard", spec.Name, "request beats printer preset")

	_, err = s.ResolveSpec("jumbo", "")
	assert.Error(t, err)
}

func TestPreview(t *testing.T) {
	s := newTestService(&fakeItems{}, &fakeQueue{})

	img, err := s.Preview(&labelformat.Job{Spec: "compact", Items: []labelformat.Item{{Name: "Fuse", Code: "123", SalePrice: 1000}}})
	require.NoError(t, err)
	assert.Equal(t, labelformat.Compact.CanvasWidth, img.Width)
	assert.Equal(t, []ean13.Code{"0000000001236"}, img.ResolvedCodes)

	img, err = s.Preview(&labelformat.Job{})
	require.NoError(t, err)
	assert.Empty(t, img.ResolvedCodes)

	_, err = s.Preview(&labelformat.Job{Items: make([]labelformat.Item, 3)})
	assert.Error(t, err)
}

func TestPrintJob(t *testing.T) {
	q := &fakeQueue{}
	s := newTestService(&fakeItems{}, q)

	res, err := s.PrintJob("p1", &labelformat.Job{Copies: 3, Items: []labelformat.Item{
		{Name: "A", Code: "907340314386", SalePrice: 100},
		{Name: "B", Code: "UPC-907340", SalePrice: 200},
	}})
	require.NoError(t, err)
	assert.Equal(t, "job-1", res.JobID)
	assert.Equal(t, 3, res.Copies)
	assert.Equal(t, []ean13.Code{"9073403143866", "0000009073401"}, res.ResolvedCodes)
	require.Len(t, q.requests, 1)
	assert.Equal(t, "standard", q.requests[0].Spec.Name)

	_, err = s.PrintJob("missing", &labelformat.Job{Items: []labelformat.Item{{Name: "A"}}})
	assert.Error(t, err)
}

func TestPrintStored_RecordsCode(t *testing.T) {
	items := &fakeItems{items: []store.Item{{Name: "Belt", Code: "9073403143866", SalePrice: 5000, Stock: 1}}}
	q := &fakeQueue{}
	s := newTestService(items, q)

	res, err := s.PrintStored(context.Background(), "p1", "Belt", "", 2)
	require.NoError(t, err)
	assert.Equal(t, []ean13.Code{"9073403143866"}, res.ResolvedCodes, "stock 1 fills one slot")
	assert.Empty(t, items.recorded, "nothing is recorded while the job is queued")

	q.finish(printer.StatusCompleted)
	assert.Equal(t, ean13.Code("9073403143866"), items.recorded["Belt"])

	_, err = s.PrintStored(context.Background(), "p1", "Nope", "", 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPrintAll(t *testing.T) {
	items := &fakeItems{items: []store.Item{
		{Name: "A", Code: "0000000001236", SalePrice: 100, Stock: 5},
		{Name: "B", Code: "9073403143866", SalePrice: 200, Stock: 0},
		{Name: "C", Code: "0000009073401", SalePrice: 300, Stock: 1},
	}}
	q := &fakeQueue{}
	s := newTestService(items, q)

	res, err := s.PrintAll(context.Background(), "p2", "")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sheets)
	assert.Equal(t, "compact", res.Spec)
	assert.Equal(t, []ean13.Code{"0000000001236", "0000000001236", "0000009073401"}, res.ResolvedCodes)

	q.finish(printer.StatusCompleted)
	assert.Len(t, items.recorded, 2)
	assert.Equal(t, ean13.Code("0000009073401"), items.recorded["C"])
}

func TestPrintStored_FailedJobRecordsNothing(t *testing.T) {
	items := &fakeItems{items: []store.Item{{Name: "Belt", Code: "9073403143866", SalePrice: 5000, Stock: 2}}}
	q := &fakeQueue{}
	s := newTestService(items, q)

	_, err := s.PrintStored(context.Background(), "p1", "Belt", "", 1)
	require.NoError(t, err)

	q.finish(printer.StatusFailed)
	assert.Empty(t, items.recorded)
}

func TestPrintAll_NothingInStock(t *testing.T) {
	s := newTestService(&fakeItems{items: []store.Item{{Name: "A", Stock: 0}}}, &fakeQueue{})
	_, err := s.PrintAll(context.Background(), "p1", "")
	assert.ErrorIs(t, err, ErrNothingToPrint)
}
