package api

import (
	"bytes"
	"encoding/json"
	"image/png"
	"io"
	"log"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereceipt/label-engine/internal/command"
	"github.com/thereceipt/label-engine/internal/export"
	"github.com/thereceipt/label-engine/internal/labels"
	"github.com/thereceipt/label-engine/internal/metrics"
	"github.com/thereceipt/label-engine/internal/printer"
	"github.com/thereceipt/label-engine/internal/renderer"
	"github.com/thereceipt/label-engine/internal/store"
)

type nopTransport struct{}

func (nopTransport) Send(*printer.Printer, []byte) error { return nil }

type testEnv struct {
	server    *Server
	manager   *printer.Manager
	printerID string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	manager, err := printer.NewManager(filepath.Join(dir, "printer_registry.json"), printer.ProtocolESCPOS)
	require.NoError(t, err)

	items, err := store.Open(filepath.Join(dir, "labels.db"))
	require.NoError(t, err)
	t.Cleanup(func() { items.Close() })

	queue := printer.NewPrintQueue(nopTransport{}, manager, 1)
	t.Cleanup(queue.Stop)

	m := metrics.New(nil)
	logger := log.New(io.Discard, "", 0)
	svc := labels.NewService(labels.Config{
		Renderer:    renderer.New(renderer.WithLogger(logger), renderer.WithObserver(m)),
		Items:       items,
		Queue:       queue,
		Printers:    manager,
		DefaultSpec: "standard",
		Logger:      logger,
	})

	server := NewServer(Deps{
		Manager:  manager,
		Queue:    queue,
		Items:    items,
		Labels:   svc,
		Executor: command.NewExecutor(manager, queue, items, svc),
		Metrics:  m,
	})

	return &testEnv{
		server:    server,
		manager:   manager,
		printerID: manager.AddNetworkPrinter("127.0.0.1", 9100, "test"),
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthAndPresets(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/health", nil)
	assert.Equal(t, 200, rec.Code)

	rec = env.do(t, "GET", "/presets", nil)
	require.Equal(t, 200, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "standard", body["default"])
	assert.GreaterOrEqual(t, len(body["presets"].([]interface{})), 2)
}

func TestPreview(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/labels/preview", map[string]interface{}{
		"spec":  "compact",
		"items": []map[string]interface{}{{"name": "Fuse", "code": "UPC-907340", "sale_price": 1500}},
	})
	require.Equal(t, 200, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "0000009073401", rec.Header().Get("X-Resolved-Codes"))
	assert.Equal(t, "primary", rec.Header().Get("X-Barcode-Tiers"))

	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 607, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())

	rec = env.do(t, "POST", "/labels/preview", map[string]interface{}{"format": "gif"})
	assert.Equal(t, 400, rec.Code)

	rec = env.do(t, "POST", "/labels/preview", map[string]interface{}{"spec": "jumbo"})
	assert.Equal(t, 400, rec.Code)
}

func TestItems(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/items", map[string]interface{}{
		"name": "Brake Pad", "code": "907340314386", "purchase_price": 100000, "profit_bp": 2500, "stock": 3,
	})
	require.Equal(t, 201, rec.Code, rec.Body.String())
	item := decode(t, rec)["item"].(map[string]interface{})
	assert.Equal(t, "9073403143866", item["code"])

	rec = env.do(t, "POST", "/items", map[string]interface{}{
		"name": "Brake Pad", "purchase_price": 100000, "stock": 3,
	})
	assert.Equal(t, 409, rec.Code)

	rec = env.do(t, "POST", "/items", map[string]interface{}{"name": "Zero", "purchase_price": 0, "stock": 3})
	assert.Equal(t, 400, rec.Code)

	rec = env.do(t, "GET", "/items", nil)
	require.Equal(t, 200, rec.Code)
	body := decode(t, rec)
	assert.Len(t, body["items"], 1)

	rec = env.do(t, "GET", "/items/Brake%20Pad", nil)
	assert.Equal(t, 200, rec.Code)
	rec = env.do(t, "GET", "/items/Nothing", nil)
	assert.Equal(t, 404, rec.Code)

	rec = env.do(t, "GET", "/items/export", nil)
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")

	rec = env.do(t, "POST", "/items/Brake%20Pad/print", map[string]interface{}{"printer_id": env.printerID, "copies": 2})
	require.Equal(t, 200, rec.Code, rec.Body.String())
	job := decode(t, rec)["job"].(map[string]interface{})
	assert.Equal(t, []interface{}{"9073403143866", "9073403143866"}, job["resolved_codes"])

	rec = env.do(t, "POST", "/items/print-all", map[string]interface{}{"printer_id": env.printerID})
	assert.Equal(t, 200, rec.Code, rec.Body.String())

	rec = env.do(t, "POST", "/items/Nothing/print", map[string]interface{}{"printer_id": env.printerID})
	assert.Equal(t, 404, rec.Code)

	rec = env.do(t, "DELETE", "/items/Brake%20Pad", nil)
	assert.Equal(t, 200, rec.Code)
	rec = env.do(t, "DELETE", "/items/Brake%20Pad", nil)
	assert.Equal(t, 404, rec.Code)
}

func TestPrintLabelsAndJobs(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/labels/print", map[string]interface{}{
		"printer_id": env.printerID,
		"items":      []map[string]interface{}{{"name": "A", "code": "123", "sale_price": 100}},
	})
	require.Equal(t, 200, rec.Code, rec.Body.String())
	job := decode(t, rec)["job"].(map[string]interface{})
	jobID := job["job_id"].(string)

	rec = env.do(t, "GET", "/job/"+jobID, nil)
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, []interface{}{"0000000001236"}, decode(t, rec)["resolved_codes"])

	rec = env.do(t, "GET", "/jobs", nil)
	assert.Equal(t, 200, rec.Code)
	rec = env.do(t, "GET", "/job/missing", nil)
	assert.Equal(t, 404, rec.Code)

	rec = env.do(t, "POST", "/labels/print", map[string]interface{}{"items": []interface{}{}})
	assert.Equal(t, 400, rec.Code)
}

func TestPrinters(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/printer/network", map[string]interface{}{"host": "10.0.0.7", "protocol": "tspl", "spec": "compact"})
	require.Equal(t, 200, rec.Code, rec.Body.String())
	id := decode(t, rec)["printer_id"].(string)
	p := env.manager.GetPrinter(id)
	require.NotNil(t, p)
	assert.Equal(t, "tspl", p.Protocol)
	assert.Equal(t, "compact", p.LabelSpec)

	rec = env.do(t, "POST", "/printer/"+id+"/name", map[string]interface{}{"name": "Back Room"})
	assert.Equal(t, 200, rec.Code)
	rec = env.do(t, "POST", "/printer/"+id+"/preset", map[string]interface{}{"spec": "jumbo"})
	assert.Equal(t, 400, rec.Code)
	rec = env.do(t, "POST", "/printer/missing/preset", map[string]interface{}{"spec": "compact"})
	assert.Equal(t, 404, rec.Code)
	rec = env.do(t, "POST", "/printer/"+id+"/protocol", map[string]interface{}{"protocol": "escpos"})
	assert.Equal(t, 200, rec.Code)

	rec = env.do(t, "GET", "/printers", nil)
	require.Equal(t, 200, rec.Code)
	assert.Len(t, decode(t, rec)["printers"], 2)
}

func TestCommandAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/command", map[string]interface{}{"command": "presets"})
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, true, decode(t, rec)["success"])

	rec = env.do(t, "POST", "/command", map[string]interface{}{"command": "bogus"})
	assert.Equal(t, 400, rec.Code)

	rec = env.do(t, "GET", "/metrics", nil)
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `label_engine_http_requests_total{endpoint="/command",method="POST",status="200"} 1`)
}

func TestWebSocket_PrintAndBroadcast(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	require.NoError(t, conn.WriteJSON(WSMessage{Event: EventPrint, Data: map[string]interface{}{
		"printer_id": env.printerID,
		"items":      []map[string]interface{}{{"name": "A", "code": "123", "sale_price": 100}},
	}}))

	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventResponse, msg.Event)
	assert.Equal(t, true, msg.Data["success"])

	require.NoError(t, conn.WriteJSON(WSMessage{Event: "dance"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventError, msg.Event)

	env.server.BroadcastPrinterRemoved("gone")
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventPrinterRemoved, msg.Event)
	assert.Equal(t, "gone", msg.Data["id"])
}
