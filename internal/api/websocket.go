package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/thereceipt/label-engine/internal/printer"
)

// WebSocket message types
const (
	EventPrint          = "print"
	EventPrinterAdded   = "printer_added"
	EventPrinterRemoved = "printer_removed"
	EventJobUpdate      = "job_update"
	EventResponse       = "response"
	EventError          = "error"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

// WSClient represents a connected WebSocket client
type WSClient struct {
	conn   *websocket.Conn
	send   chan WSMessage
	server *Server
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("⚠️  WebSocket upgrade failed: %v", err)
		return
	}

	client := &WSClient{
		conn:   conn,
		send:   make(chan WSMessage, 256),
		server: s,
	}

	s.addClient(client)
	log.Println("📡 WebSocket client connected")

	go client.readPump()
	go client.writePump()
}

func (s *Server) addClient(client *WSClient) {
	s.clientsMu.Lock()
	s.clients[client] = true
	s.clientsMu.Unlock()
}

func (s *Server) removeClient(client *WSClient) {
	s.clientsMu.Lock()
	if s.clients[client] {
		delete(s.clients, client)
		close(client.send)
	}
	s.clientsMu.Unlock()
}

func (c *WSClient) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			log.Printf("⚠️  WebSocket write error: %v", err)
			return
		}
	}
}

func (c *WSClient) readPump() {
	defer func() {
		c.server.removeClient(c)
		c.conn.Close()
		log.Println("📡 WebSocket client disconnected")
	}()

	for {
		var msg WSMessage
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("⚠️  WebSocket error: %v", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

func (c *WSClient) handleMessage(msg *WSMessage) {
	switch msg.Event {
	case EventPrint:
		c.handlePrintEvent(msg.Data)
	default:
		c.sendError(fmt.Sprintf("unknown event: %s", msg.Event))
	}
}

// handlePrintEvent prints either a stored item ("item") or inline labels ("items")
func (c *WSClient) handlePrintEvent(data map[string]interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		c.sendError(fmt.Sprintf("invalid print event: %v", err))
		return
	}

	var req struct {
		labelRequest
		Item string `json:"item"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		c.sendError(fmt.Sprintf("invalid print event: %v", err))
		return
	}
	if req.PrinterID == "" {
		c.sendError("printer_id is required")
		return
	}

	svc := c.server.labels
	if req.Item != "" {
		res, err := svc.PrintStored(context.Background(), req.PrinterID, req.Item, req.Spec, req.Copies)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		c.sendResponse(map[string]interface{}{"success": true, "job": res})
		return
	}

	job, err := req.job()
	if err != nil {
		c.sendError(err.Error())
		return
	}
	res, err := svc.PrintJob(req.PrinterID, job)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.sendResponse(map[string]interface{}{"success": true, "job": res})
}

// deliver queues a message without blocking; full or closed clients are skipped
func (c *WSClient) deliver(msg WSMessage) {
	c.server.clientsMu.RLock()
	defer c.server.clientsMu.RUnlock()

	if !c.server.clients[c] {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (c *WSClient) sendResponse(data map[string]interface{}) {
	c.deliver(WSMessage{Event: EventResponse, Data: data})
}

func (c *WSClient) sendError(message string) {
	c.deliver(WSMessage{
		Event: EventError,
		Data: map[string]interface{}{
			"error": message,
		},
	})
}

func (s *Server) broadcast(message WSMessage) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for client := range s.clients {
		select {
		case client.send <- message:
		default:
			// Client send buffer full, skip
		}
	}
}

// BroadcastPrinterAdded broadcasts a printer added event to all connected clients
func (s *Server) BroadcastPrinterAdded(p *printer.Printer) {
	s.broadcast(WSMessage{
		Event: EventPrinterAdded,
		Data: map[string]interface{}{
			"id":          p.ID,
			"type":        p.Type,
			"description": p.Description,
			"name":        p.Name,
			"protocol":    p.Protocol,
			"label_spec":  p.LabelSpec,
		},
	})

	log.Printf("📡 Broadcast: Printer added - %s", p.Description)
}

// BroadcastPrinterRemoved broadcasts a printer removed event to all connected clients
func (s *Server) BroadcastPrinterRemoved(printerID string) {
	s.broadcast(WSMessage{
		Event: EventPrinterRemoved,
		Data: map[string]interface{}{
			"id": printerID,
		},
	})

	log.Printf("📡 Broadcast: Printer removed - %s", printerID)
}

// BroadcastJobUpdate pushes a print job status change to all connected clients
func (s *Server) BroadcastJobUpdate(job printer.PrintJob) {
	s.broadcast(WSMessage{
		Event: EventJobUpdate,
		Data: map[string]interface{}{
			"id":             job.ID,
			"printer_id":     job.PrinterID,
			"status":         job.Status,
			"retries":        job.Retries,
			"error":          job.Error,
			"resolved_codes": job.ResolvedCodes,
		},
	})
}
