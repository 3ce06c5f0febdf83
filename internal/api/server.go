// Package api handles HTTP and WebSocket API endpoints
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/thereceipt/label-engine/internal/command"
	"github.com/thereceipt/label-engine/internal/export"
	"github.com/thereceipt/label-engine/internal/labels"
	"github.com/thereceipt/label-engine/internal/metrics"
	"github.com/thereceipt/label-engine/internal/printer"
	"github.com/thereceipt/label-engine/internal/renderer"
	"github.com/thereceipt/label-engine/internal/store"
	"github.com/thereceipt/label-engine/pkg/labelformat"
)

// Server is the API server
type Server struct {
	router   *gin.Engine
	manager  *printer.Manager
	queue    *printer.PrintQueue
	items    *store.Store
	labels   *labels.Service
	executor *command.Executor
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader

	clients   map[*WSClient]bool
	clientsMu sync.RWMutex
}

// Deps are the collaborators the server routes to
type Deps struct {
	Manager  *printer.Manager
	Queue    *printer.PrintQueue
	Items    *store.Store
	Labels   *labels.Service
	Executor *command.Executor
	Metrics  *metrics.Metrics
}

// NewServer creates a new API server
func NewServer(deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	server := &Server{
		router:   router,
		manager:  deps.Manager,
		queue:    deps.Queue,
		items:    deps.Items,
		labels:   deps.Labels,
		executor: deps.Executor,
		metrics:  deps.Metrics,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
		clients: make(map[*WSClient]bool),
	}

	if server.metrics != nil {
		router.Use(metricsMiddleware(server.metrics))
	}
	router.Use(corsMiddleware())

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	// Labels
	s.router.GET("/presets", s.handleGetPresets)
	s.router.POST("/labels/preview", s.handlePreview)
	s.router.POST("/labels/print", s.handlePrintLabels)

	// Items
	s.router.GET("/items", s.handleListItems)
	s.router.POST("/items", s.handleAddItem)
	s.router.GET("/items/export", s.handleExportItems)
	s.router.POST("/items/print-all", s.handlePrintAll)
	s.router.GET("/items/:name", s.handleGetItem)
	s.router.DELETE("/items/:name", s.handleDeleteItem)
	s.router.POST("/items/:name/print", s.handlePrintItem)

	// Printers
	s.router.GET("/printers", s.handleGetPrinters)
	s.router.POST("/printer/:id/name", s.handleSetPrinterName)
	s.router.POST("/printer/:id/preset", s.handleSetPrinterPreset)
	s.router.POST("/printer/:id/protocol", s.handleSetPrinterProtocol)
	s.router.POST("/printer/network", s.handleAddNetworkPrinter)

	// Jobs
	s.router.GET("/jobs", s.handleGetJobs)
	s.router.GET("/job/:id", s.handleGetJob)

	// Command endpoint
	s.router.POST("/command", s.handleCommand)

	// WebSocket
	s.router.GET("/ws", s.handleWebSocket)

	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	// Health check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// errorStatus maps domain errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return 404
	case errors.Is(err, store.ErrDuplicate):
		return 409
	default:
		return 400
	}
}

// handleGetPresets returns the label presets
func (s *Server) handleGetPresets(c *gin.Context) {
	c.JSON(200, gin.H{
		"presets": labelformat.Specs(),
		"default": labelformat.DefaultSpecName,
	})
}

// loadJobFromPathOrURL loads a .label job from a file path or URL
func loadJobFromPathOrURL(pathOrURL string) (*labelformat.Job, error) {
	if !strings.HasPrefix(pathOrURL, "http://") && !strings.HasPrefix(pathOrURL, "https://") {
		return labelformat.ParseFile(pathOrURL)
	}

	resp, err := http.Get(pathOrURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch label job from URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch label job: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read label job from URL: %w", err)
	}
	return labelformat.Parse(data)
}

type labelRequest struct {
	PrinterID string             `json:"printer_id"`
	Spec      string             `json:"spec"`
	Copies    int                `json:"copies"`
	Format    string             `json:"format"`
	Items     []labelformat.Item `json:"items"`
	JobPath   string             `json:"job_path"`
	JobURL    string             `json:"job_url"`
}

// job builds the label job from inline items or a referenced .label file
func (r *labelRequest) job() (*labelformat.Job, error) {
	var job *labelformat.Job
	switch {
	case r.JobURL != "":
		j, err := loadJobFromPathOrURL(r.JobURL)
		if err != nil {
			return nil, err
		}
		job = j
	case r.JobPath != "":
		j, err := loadJobFromPathOrURL(r.JobPath)
		if err != nil {
			return nil, err
		}
		job = j
	default:
		job = &labelformat.Job{Version: "1.0", Items: r.Items, Copies: 1}
	}

	if r.Spec != "" {
		job.Spec = r.Spec
	}
	if r.Copies > 0 {
		job.Copies = r.Copies
	}
	return job, nil
}

// handlePreview renders labels and returns the image
func (s *Server) handlePreview(c *gin.Context) {
	var req labelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	format, err := renderer.ParseFormat(req.Format)
	if err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	job, err := req.job()
	if err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	img, err := s.labels.Preview(job)
	if err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	codes := make([]string, len(img.ResolvedCodes))
	for i, code := range img.ResolvedCodes {
		codes[i] = string(code)
	}
	tiers := make([]string, len(img.Slots))
	for i, slot := range img.Slots {
		tiers[i] = slot.Tier.String()
	}

	c.Header("X-Resolved-Codes", strings.Join(codes, ","))
	c.Header("X-Barcode-Tiers", strings.Join(tiers, ","))
	c.Header("X-Label-Spec", img.Spec)
	c.Header("Content-Type", format.ContentType())
	c.Status(200)
	if err := img.Encode(c.Writer, format); err != nil {
		c.Error(err)
	}
}

// handlePrintLabels renders ad-hoc labels and queues them
func (s *Server) handlePrintLabels(c *gin.Context) {
	var req labelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	if req.PrinterID == "" {
		c.JSON(400, gin.H{"error": "printer_id is required"})
		return
	}

	job, err := req.job()
	if err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	res, err := s.labels.PrintJob(req.PrinterID, job)
	if err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, gin.H{"success": true, "job": res})
}

// handleListItems returns stored items and inventory totals
func (s *Server) handleListItems(c *gin.Context) {
	ctx := c.Request.Context()
	items, err := s.items.List(ctx)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	totals, err := s.items.InventoryValue(ctx)
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	if items == nil {
		items = []store.Item{}
	}

	c.JSON(200, gin.H{"items": items, "totals": totals})
}

// handleAddItem stores a new item
func (s *Server) handleAddItem(c *gin.Context) {
	var req store.NewItem
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	item, err := s.items.Add(c.Request.Context(), req)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(201, gin.H{"success": true, "item": item})
}

// handleGetItem returns one item
func (s *Server) handleGetItem(c *gin.Context) {
	item, err := s.items.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, item)
}

// handleDeleteItem removes one item
func (s *Server) handleDeleteItem(c *gin.Context) {
	if err := s.items.Delete(c.Request.Context(), c.Param("name")); err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"success": true})
}

type printItemRequest struct {
	PrinterID string `json:"printer_id" binding:"required"`
	Spec      string `json:"spec"`
	Copies    int    `json:"copies"`
}

// handlePrintItem prints a sheet for one stored item
func (s *Server) handlePrintItem(c *gin.Context) {
	var req printItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "printer_id is required"})
		return
	}

	res, err := s.labels.PrintStored(c.Request.Context(), req.PrinterID, c.Param("name"), req.Spec, req.Copies)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"success": true, "job": res})
}

// handlePrintAll prints a sheet for every stocked item
func (s *Server) handlePrintAll(c *gin.Context) {
	var req printItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "printer_id is required"})
		return
	}

	res, err := s.labels.PrintAll(c.Request.Context(), req.PrinterID, req.Spec)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"success": true, "job": res})
}

// handleExportItems streams the inventory as a spreadsheet
func (s *Server) handleExportItems(c *gin.Context) {
	items, err := s.items.List(c.Request.Context())
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	filename := fmt.Sprintf("items-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", export.ContentType)
	c.Status(200)
	if err := export.WriteItems(c.Writer, items); err != nil {
		c.Error(err)
	}
}

// handleGetPrinters returns all detected printers
func (s *Server) handleGetPrinters(c *gin.Context) {
	printers := s.manager.GetAllPrinters()

	c.JSON(200, gin.H{
		"printers": printers,
	})
}

// handleSetPrinterName sets a custom name for a printer
func (s *Server) handleSetPrinterName(c *gin.Context) {
	printerID := c.Param("id")

	var req struct {
		Name string `json:"name" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "name is required"})
		return
	}

	if !s.manager.SetPrinterName(printerID, req.Name) {
		c.JSON(404, gin.H{"error": "printer not found"})
		return
	}

	c.JSON(200, gin.H{"success": true})
}

// handleSetPrinterPreset sets the default label preset of a printer
func (s *Server) handleSetPrinterPreset(c *gin.Context) {
	printerID := c.Param("id")

	var req struct {
		Spec string `json:"spec" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "spec is required"})
		return
	}

	if s.manager.GetPrinter(printerID) == nil {
		c.JSON(404, gin.H{"error": "printer not found"})
		return
	}
	if err := s.manager.SetLabelSpec(printerID, req.Spec); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, gin.H{"success": true})
}

// handleSetPrinterProtocol sets the command language of a printer
func (s *Server) handleSetPrinterProtocol(c *gin.Context) {
	printerID := c.Param("id")

	var req struct {
		Protocol string `json:"protocol" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "protocol is required"})
		return
	}

	if s.manager.GetPrinter(printerID) == nil {
		c.JSON(404, gin.H{"error": "printer not found"})
		return
	}
	if err := s.manager.SetProtocol(printerID, req.Protocol); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, gin.H{"success": true})
}

// handleAddNetworkPrinter manually adds a network printer
func (s *Server) handleAddNetworkPrinter(c *gin.Context) {
	var req struct {
		Host        string `json:"host" binding:"required"`
		Port        int    `json:"port"`
		Description string `json:"description"`
		Protocol    string `json:"protocol"`
		Spec        string `json:"spec"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "host is required"})
		return
	}

	printerID := s.manager.AddNetworkPrinter(req.Host, req.Port, req.Description)

	if req.Protocol != "" {
		if err := s.manager.SetProtocol(printerID, req.Protocol); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
	}
	if req.Spec != "" {
		if err := s.manager.SetLabelSpec(printerID, req.Spec); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(200, gin.H{
		"success":    true,
		"printer_id": printerID,
		"printer":    s.manager.GetPrinter(printerID),
	})
}

// handleGetJobs returns all print jobs
func (s *Server) handleGetJobs(c *gin.Context) {
	c.JSON(200, gin.H{"jobs": s.queue.GetAllJobs()})
}

// handleGetJob returns a specific print job
func (s *Server) handleGetJob(c *gin.Context) {
	job := s.queue.GetJob(c.Param("id"))
	if job == nil {
		c.JSON(404, gin.H{"error": "job not found"})
		return
	}

	c.JSON(200, job)
}

// handleCommand handles command execution requests
func (s *Server) handleCommand(c *gin.Context) {
	var req struct {
		Command string `json:"command" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "command is required"})
		return
	}

	result := s.executor.Execute(c.Request.Context(), req.Command)

	if !result.Success {
		c.JSON(400, gin.H{
			"success": false,
			"error":   result.Error,
		})
		return
	}

	response := gin.H{
		"success": true,
	}
	if result.Message != "" {
		response["message"] = result.Message
	}
	for k, v := range result.Data {
		response[k] = v
	}
	c.JSON(200, response)
}

// Run starts the API server
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Resolved-Codes, X-Barcode-Tiers, X-Label-Spec")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func metricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}
