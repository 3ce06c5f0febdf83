// Package printer detects label printers, encodes canvases for them and delivers print jobs
package printer

import (
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/gousb"
	"github.com/tarm/serial"

	"github.com/thereceipt/label-engine/internal/registry"
	"github.com/thereceipt/label-engine/pkg/labelformat"
)

// Printer command languages
const (
	ProtocolESCPOS = registry.ProtocolESCPOS
	ProtocolTSPL   = registry.ProtocolTSPL
)

// Manager handles printer detection and per-printer settings
type Manager struct {
	registry        *registry.Registry
	printers        map[string]*Printer
	defaultProtocol string
	mu              sync.RWMutex

	onPrinterAdded   func(*Printer)
	onPrinterRemoved func(string)
}

// Printer is a known printer and its settings
type Printer struct {
	ID          string `json:"id"`
	Type        string `json:"type"` // usb, serial, network
	Description string `json:"description"`
	Device      string `json:"device,omitempty"`
	VID         uint16 `json:"vid,omitempty"`
	PID         uint16 `json:"pid,omitempty"`
	Host        string `json:"host,omitempty"`
	Port        int    `json:"port,omitempty"`
	Name        string `json:"name,omitempty"`
	Protocol    string `json:"protocol"`
	LabelSpec   string `json:"label_spec,omitempty"`
}

// DisplayName is the custom name if set, otherwise the description
func (p *Printer) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Description
}

// NewManager creates a manager backed by the registry file at registryPath
func NewManager(registryPath string, defaultProtocol string) (*Manager, error) {
	reg, err := registry.New(registryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}
	return NewManagerWithRegistry(reg, defaultProtocol), nil
}

// NewManagerWithRegistry creates a manager around an open registry.
// Network printers saved in the registry are available immediately.
func NewManagerWithRegistry(reg *registry.Registry, defaultProtocol string) *Manager {
	if defaultProtocol == "" {
		defaultProtocol = ProtocolESCPOS
	}

	m := &Manager{
		registry:        reg,
		printers:        make(map[string]*Printer),
		defaultProtocol: defaultProtocol,
	}
	for _, entry := range reg.Entries() {
		if entry.Type == "network" {
			m.printers[entry.ID] = m.fromEntry(entry)
		}
	}
	return m
}

func (m *Manager) fromEntry(entry registry.PrinterEntry) *Printer {
	protocol := entry.Protocol
	if protocol == "" {
		protocol = m.defaultProtocol
	}
	return &Printer{
		ID:          entry.ID,
		Type:        entry.Type,
		Description: entry.Description,
		Device:      entry.Device,
		VID:         entry.VID,
		PID:         entry.PID,
		Host:        entry.Host,
		Port:        entry.Port,
		Name:        entry.Name,
		Protocol:    protocol,
		LabelSpec:   entry.LabelSpec,
	}
}

// register stores info in the registry and returns the printer with its saved settings
func (m *Manager) register(info registry.PrinterInfo) *Printer {
	id := m.registry.GetPrinterID(info)
	entry := m.registry.GetPrinterInfo(id)
	if entry == nil {
		return &Printer{ID: id, Type: info.Type, Description: info.Description, Protocol: m.defaultProtocol}
	}
	return m.fromEntry(*entry)
}

// DetectPrinters rescans USB and serial printers. Network printers are kept.
func (m *Manager) DetectPrinters() ([]*Printer, error) {
	var found []*Printer

	usbPrinters, err := m.detectUSB()
	if err != nil {
		log.Printf("⚠️  USB detection failed: %v", err)
	} else {
		found = append(found, usbPrinters...)
	}

	found = append(found, m.detectSerial()...)

	m.mu.Lock()
	defer m.mu.Unlock()

	next := make(map[string]*Printer, len(found))
	for id, p := range m.printers {
		if p.Type == "network" {
			next[id] = p
		}
	}
	for _, p := range found {
		next[p.ID] = p
	}
	m.printers = next

	return m.sortedLocked(), nil
}

// GetPrinter returns a copy of the printer with the given ID, or nil
func (m *Manager) GetPrinter(id string) *Printer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.printers[id]
	if !ok {
		return nil
	}
	printerCopy := *p
	return &printerCopy
}

// GetAllPrinters returns copies of all known printers sorted by ID
func (m *Manager) GetAllPrinters() []*Printer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.sortedLocked()
}

func (m *Manager) sortedLocked() []*Printer {
	result := make([]*Printer, 0, len(m.printers))
	for _, p := range m.printers {
		printerCopy := *p
		result = append(result, &printerCopy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// SetPrinterName sets a custom name for a printer
func (m *Manager) SetPrinterName(id string, name string) bool {
	if !m.registry.SetPrinterName(id, name) {
		return false
	}

	m.mu.Lock()
	if printer, exists := m.printers[id]; exists {
		printer.Name = name
	}
	m.mu.Unlock()
	return true
}

// SetLabelSpec sets the default label preset for a printer
func (m *Manager) SetLabelSpec(id string, spec string) error {
	if _, err := labelformat.LookupSpec(spec); err != nil {
		return err
	}
	if !m.registry.SetLabelSpec(id, spec) {
		return fmt.Errorf("printer not found: %s", id)
	}

	m.mu.Lock()
	if printer, exists := m.printers[id]; exists {
		printer.LabelSpec = spec
	}
	m.mu.Unlock()
	return nil
}

// SetProtocol sets the command language for a printer
func (m *Manager) SetProtocol(id string, protocol string) error {
	if err := m.registry.SetProtocol(id, protocol); err != nil {
		return err
	}

	m.mu.Lock()
	if printer, exists := m.printers[id]; exists {
		printer.Protocol = protocol
	}
	m.mu.Unlock()
	return nil
}

// AddNetworkPrinter adds a raw TCP printer and returns its ID
func (m *Manager) AddNetworkPrinter(host string, port int, description string) string {
	if port == 0 {
		port = DefaultNetworkPort
	}
	if description == "" {
		description = fmt.Sprintf("Network: %s:%d", host, port)
	}

	printer := m.register(registry.PrinterInfo{
		Type:        "network",
		Host:        host,
		Port:        port,
		Description: description,
	})

	m.mu.Lock()
	m.printers[printer.ID] = printer
	m.mu.Unlock()

	if m.onPrinterAdded != nil {
		m.onPrinterAdded(printer)
	}
	return printer.ID
}

// RemovePrinter forgets a printer
func (m *Manager) RemovePrinter(id string) bool {
	m.mu.Lock()
	_, known := m.printers[id]
	delete(m.printers, id)
	m.mu.Unlock()

	removed := m.registry.RemovePrinter(id) || known
	if removed && m.onPrinterRemoved != nil {
		m.onPrinterRemoved(id)
	}
	return removed
}

// OnPrinterAdded sets a callback for when a printer is added
func (m *Manager) OnPrinterAdded(callback func(*Printer)) {
	m.onPrinterAdded = callback
}

// OnPrinterRemoved sets a callback for when a printer is removed
func (m *Manager) OnPrinterRemoved(callback func(string)) {
	m.onPrinterRemoved = callback
}

// detectUSB lists devices of the USB printer class using libusb
func (m *Manager) detectUSB() (printers []*Printer, err error) {
	defer func() {
		// gousb panics when libusb is missing at runtime.
		if r := recover(); r != nil {
			printers, err = nil, fmt.Errorf("libusb unavailable: %v", r)
		}
	}()

	ctx := gousb.NewContext()
	defer ctx.Close()

	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return isPrinterClass(desc)
	})
	if err != nil && len(devices) == 0 {
		return nil, fmt.Errorf("failed to enumerate USB devices: %w", err)
	}

	for _, dev := range devices {
		desc := dev.Desc
		manufacturer, _ := dev.Manufacturer()
		product, _ := dev.Product()
		dev.Close()

		description := fmt.Sprintf("USB: %04X:%04X", desc.Vendor, desc.Product)
		if manufacturer != "" || product != "" {
			description = fmt.Sprintf("USB: %s %s (%04X:%04X)", manufacturer, product, desc.Vendor, desc.Product)
		}

		printers = append(printers, m.register(registry.PrinterInfo{
			Type:        "usb",
			VID:         uint16(desc.Vendor),
			PID:         uint16(desc.Product),
			Description: description,
		}))
	}

	return printers, nil
}

func isPrinterClass(desc *gousb.DeviceDesc) bool {
	if desc.Class == gousb.ClassPrinter {
		return true
	}
	for _, cfg := range desc.Configs {
		for _, iface := range cfg.Interfaces {
			for _, alt := range iface.AltSettings {
				if alt.Class == gousb.ClassPrinter {
					return true
				}
			}
		}
	}
	return false
}

// detectSerial probes serial ports by opening them briefly
func (m *Manager) detectSerial() []*Printer {
	var printers []*Printer

	for _, portPath := range serialCandidates(true) {
		port, err := serial.OpenPort(&serial.Config{Name: portPath, Baud: DefaultBaud})
		if err != nil {
			continue
		}
		port.Close()

		printers = append(printers, m.register(registry.PrinterInfo{
			Type:        "serial",
			Device:      portPath,
			Description: fmt.Sprintf("Serial: %s", filepath.Base(portPath)),
		}))
	}

	return printers
}
