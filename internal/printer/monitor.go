package printer

import (
	"context"
	"log"
	"time"
)

// Monitor polls for printers being plugged in or removed
type Monitor struct {
	manager  *Manager
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	known    map[string]*Printer
}

// NewMonitor creates a new printer monitor
func NewMonitor(manager *Manager, interval time.Duration) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())

	return &Monitor{
		manager:  manager,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		known:    make(map[string]*Printer),
	}
}

// Start records the current printers and then polls in the background
func (m *Monitor) Start() {
	for _, p := range m.manager.GetAllPrinters() {
		if p.Type != "network" {
			m.known[p.ID] = p
		}
	}

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				m.checkChanges()
			}
		}
	}()
}

// Stop stops the monitor
func (m *Monitor) Stop() {
	m.cancel()
}

func (m *Monitor) checkChanges() {
	current, err := m.manager.DetectPrinters()
	if err != nil {
		log.Printf("⚠️  Printer detection failed: %v", err)
		return
	}
	m.diff(current)
}

// diff fires manager callbacks for printers that appeared or disappeared since the last poll.
// Network printers are added and removed explicitly, so they are not tracked here.
func (m *Monitor) diff(current []*Printer) {
	currentMap := make(map[string]*Printer, len(current))
	for _, p := range current {
		if p.Type != "network" {
			currentMap[p.ID] = p
		}
	}

	for id, p := range currentMap {
		if _, exists := m.known[id]; !exists {
			log.Printf("🟢 Printer added: %s", p.DisplayName())
			if m.manager.onPrinterAdded != nil {
				m.manager.onPrinterAdded(p)
			}
		}
	}

	for id, p := range m.known {
		if _, exists := currentMap[id]; !exists {
			log.Printf("🔴 Printer removed: %s", p.DisplayName())
			if m.manager.onPrinterRemoved != nil {
				m.manager.onPrinterRemoved(id)
			}
		}
	}

	m.known = currentMap
}
