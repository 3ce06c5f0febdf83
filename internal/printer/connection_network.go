package printer

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"
)

// DefaultNetworkPort is the raw printing (JetDirect) port
const DefaultNetworkPort = 9100

const (
	dialTimeout  = 5 * time.Second
	writeTimeout = 10 * time.Second
)

// NetworkConnection writes to a raw TCP printer
type NetworkConnection struct {
	conn net.Conn
	mu   sync.Mutex
}

// ConnectNetwork dials host:port; port 0 uses DefaultNetworkPort
func ConnectNetwork(host string, port int) (*NetworkConnection, error) {
	if port == 0 {
		port = DefaultNetworkPort
	}

	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to network printer: %w", err)
	}

	return &NetworkConnection{conn: conn}, nil
}

// Write sends raw printer commands
func (c *NetworkConnection) Write(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return 0, fmt.Errorf("failed to set write deadline: %w", err)
	}
	n, err := c.conn.Write(data)
	if err != nil {
		return n, fmt.Errorf("failed to write to network printer: %w", err)
	}
	return n, nil
}

// Close closes the socket
func (c *NetworkConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
