package printer

import (
	"fmt"
	"sync"

	"github.com/tarm/serial"
)

// DefaultBaud is the rate most thermal printers ship with
const DefaultBaud = 9600

// SerialConnection writes to a printer on a serial port
type SerialConnection struct {
	port *serial.Port
	mu   sync.Mutex
}

// ConnectSerial opens a serial port; baud 0 uses DefaultBaud
func ConnectSerial(device string, baud int) (*SerialConnection, error) {
	if baud == 0 {
		baud = DefaultBaud
	}

	port, err := serial.OpenPort(&serial.Config{Name: device, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}

	return &SerialConnection{port: port}, nil
}

// Write sends raw printer commands
func (c *SerialConnection) Write(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.port.Write(data)
	if err != nil {
		return n, fmt.Errorf("failed to write to serial printer: %w", err)
	}
	return n, c.port.Flush()
}

// Close closes the port
func (c *SerialConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port != nil {
		return c.port.Close()
	}
	return nil
}
