package printer

import (
	"fmt"
	"log"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// PrinterConnection is an open byte stream to one printer
type PrinterConnection interface {
	Write(data []byte) (int, error)
	Close() error
}

// ConnectionPool keeps one open connection per printer ID
type ConnectionPool struct {
	connections map[string]PrinterConnection
	mu          sync.RWMutex
}

// NewConnectionPool creates a new connection pool
func NewConnectionPool() *ConnectionPool {
	return &ConnectionPool{
		connections: make(map[string]PrinterConnection),
	}
}

// Connect opens a connection to the printer unless one is already open
func (p *ConnectionPool) Connect(printer *Printer) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.connections[printer.ID]; exists {
		return nil
	}

	conn, err := dial(printer)
	if err != nil {
		return err
	}

	p.connections[printer.ID] = conn
	return nil
}

func dial(printer *Printer) (PrinterConnection, error) {
	switch printer.Type {
	case "usb":
		conn, err := ConnectUSB(printer.VID, printer.PID)
		if err == nil {
			return conn, nil
		}
		// macOS often exposes USB printers only as serial devices.
		if runtime.GOOS == "darwin" {
			for _, port := range serialCandidates(false) {
				if serialConn, serialErr := ConnectSerial(port, DefaultBaud); serialErr == nil {
					return serialConn, nil
				}
			}
		}
		return nil, err
	case "serial":
		return ConnectSerial(printer.Device, DefaultBaud)
	case "network":
		return ConnectNetwork(printer.Host, printer.Port)
	default:
		return nil, fmt.Errorf("unsupported printer type: %s", printer.Type)
	}
}

// Send connects if needed and writes payload. A failed write drops the
// connection so the next attempt reconnects.
func (p *ConnectionPool) Send(printer *Printer, payload []byte) error {
	if err := p.Connect(printer); err != nil {
		return fmt.Errorf("failed to connect to printer: %w", err)
	}

	p.mu.RLock()
	conn, exists := p.connections[printer.ID]
	p.mu.RUnlock()
	if !exists {
		return fmt.Errorf("printer not connected: %s", printer.ID)
	}

	if _, err := conn.Write(payload); err != nil {
		if cerr := p.Disconnect(printer.ID); cerr != nil {
			log.Printf("⚠️  Failed to close connection to %s: %v", printer.ID, cerr)
		}
		return err
	}
	return nil
}

// Disconnect closes a printer connection
func (p *ConnectionPool) Disconnect(printerID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	conn, exists := p.connections[printerID]
	if !exists {
		return nil
	}

	delete(p.connections, printerID)
	return conn.Close()
}

// DisconnectAll closes all connections
func (p *ConnectionPool) DisconnectAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, conn := range p.connections {
		conn.Close()
		delete(p.connections, id)
	}
}

// IsConnected checks if a printer is connected
func (p *ConnectionPool) IsConnected(printerID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, exists := p.connections[printerID]
	return exists
}

// serialCandidates lists serial device paths worth probing on this OS
func serialCandidates(includeOnboard bool) []string {
	var ports []string

	switch runtime.GOOS {
	case "darwin":
		skipPatterns := []string{"Bluetooth", "Modem", "SPP", "DialIn", "Callout", "KeySerial", "debug-console"}
		cuPorts, _ := filepath.Glob("/dev/cu.*")
		ttyPorts, _ := filepath.Glob("/dev/tty.*")

		for _, port := range append(cuPorts, ttyPorts...) {
			skip := false
			for _, pattern := range skipPatterns {
				if strings.Contains(port, pattern) {
					skip = true
					break
				}
			}
			if !skip {
				ports = append(ports, port)
			}
		}
	case "linux":
		usbPorts, _ := filepath.Glob("/dev/ttyUSB*")
		acmPorts, _ := filepath.Glob("/dev/ttyACM*")
		ports = append(ports, usbPorts...)
		ports = append(ports, acmPorts...)
		if includeOnboard {
			sPorts, _ := filepath.Glob("/dev/ttyS*")
			ports = append(ports, sPorts...)
		}
	case "windows":
		for i := 1; i <= 256; i++ {
			ports = append(ports, fmt.Sprintf("COM%d", i))
		}
	}

	return ports
}
