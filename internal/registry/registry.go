// Package registry keeps persistent printer IDs, names and per-printer label settings
package registry

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Printer command languages
const (
	ProtocolESCPOS = "escpos"
	ProtocolTSPL   = "tspl"
)

// Registry maps printer identities to stable IDs and user settings
type Registry struct {
	filePath string
	data     map[string]*PrinterEntry
	mu       sync.RWMutex
}

// PrinterEntry stores persistent information about a printer
type PrinterEntry struct {
	ID          string `json:"id"`
	IdentityKey string `json:"identity_key"`
	Type        string `json:"type"` // usb, serial, network
	VID         uint16 `json:"vid,omitempty"`
	PID         uint16 `json:"pid,omitempty"`
	Device      string `json:"device,omitempty"`
	Host        string `json:"host,omitempty"`
	Port        int    `json:"port,omitempty"`
	Description string `json:"description"`
	Name        string `json:"name,omitempty"`
	LabelSpec   string `json:"label_spec,omitempty"` // preset printed when a job names none
	Protocol    string `json:"protocol,omitempty"`   // escpos or tspl
}

// PrinterInfo identifies a detected printer
type PrinterInfo struct {
	Type        string
	Description string
	Device      string
	VID         uint16
	PID         uint16
	Host        string
	Port        int
	Protocol    string
}

// New loads the registry at filePath; a missing file starts empty
func New(filePath string) (*Registry, error) {
	r := &Registry{
		filePath: filePath,
		data:     make(map[string]*PrinterEntry),
	}

	if err := r.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}

	return r, nil
}

// GetPrinterID gets or creates the persistent ID for a printer
func (r *Registry) GetPrinterID(info PrinterInfo) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	identityKey := identityKey(info)
	if entry, exists := r.data[identityKey]; exists {
		return entry.ID
	}

	entry := &PrinterEntry{
		ID:          uuid.New().String(),
		IdentityKey: identityKey,
		Type:        info.Type,
		VID:         info.VID,
		PID:         info.PID,
		Device:      info.Device,
		Host:        info.Host,
		Port:        info.Port,
		Description: info.Description,
		Protocol:    info.Protocol,
	}
	r.data[identityKey] = entry
	r.persist()

	return entry.ID
}

// GetPrinterName returns the custom name of a printer, or ""
func (r *Registry) GetPrinterName(printerID string) string {
	if entry := r.GetPrinterInfo(printerID); entry != nil {
		return entry.Name
	}
	return ""
}

// SetPrinterName sets a custom name for a printer
func (r *Registry) SetPrinterName(printerID string, name string) bool {
	return r.update(printerID, func(e *PrinterEntry) { e.Name = name })
}

// SetLabelSpec sets the preset used when a print job does not name one
func (r *Registry) SetLabelSpec(printerID string, spec string) bool {
	return r.update(printerID, func(e *PrinterEntry) { e.LabelSpec = spec })
}

// SetProtocol sets the command language sent to the printer
func (r *Registry) SetProtocol(printerID string, protocol string) error {
	switch protocol {
	case ProtocolESCPOS, ProtocolTSPL:
	default:
		return fmt.Errorf("unsupported protocol: %s (must be %s or %s)", protocol, ProtocolESCPOS, ProtocolTSPL)
	}
	if !r.update(printerID, func(e *PrinterEntry) { e.Protocol = protocol }) {
		return fmt.Errorf("printer not found: %s", printerID)
	}
	return nil
}

// GetPrinterInfo returns a copy of the stored entry, or nil
func (r *Registry) GetPrinterInfo(printerID string) *PrinterEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry := r.find(printerID); entry != nil {
		entryCopy := *entry
		return &entryCopy
	}
	return nil
}

// RemovePrinter removes a printer from the registry
func (r *Registry) RemovePrinter(printerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, entry := range r.data {
		if entry.ID == printerID {
			delete(r.data, key)
			r.persist()
			return true
		}
	}
	return false
}

// GetAll returns copies of all entries keyed by identity
func (r *Registry) GetAll() map[string]*PrinterEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*PrinterEntry, len(r.data))
	for k, v := range r.data {
		entryCopy := *v
		result[k] = &entryCopy
	}
	return result
}

// Entries returns copies of all entries sorted by ID
func (r *Registry) Entries() []PrinterEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]PrinterEntry, 0, len(r.data))
	for _, v := range r.data {
		entries = append(entries, *v)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

func (r *Registry) update(printerID string, fn func(*PrinterEntry)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.find(printerID)
	if entry == nil {
		return false
	}
	fn(entry)
	r.persist()
	return true
}

func (r *Registry) find(printerID string) *PrinterEntry {
	for _, entry := range r.data {
		if entry.ID == printerID {
			return entry
		}
	}
	return nil
}

// persist saves with the lock held; a failed save is retried on the next change
func (r *Registry) persist() {
	if err := r.save(); err != nil {
		log.Printf("⚠️  Failed to save printer registry %s: %v", r.filePath, err)
	}
}

func (r *Registry) load() error {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, &r.data)
}

func (r *Registry) save() error {
	data, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(r.filePath, data, 0644)
}

// identityKey derives a stable key from the printer's hardware address
func identityKey(info PrinterInfo) string {
	switch info.Type {
	case "usb":
		if info.VID != 0 && info.PID != 0 {
			return fmt.Sprintf("usb:%04X:%04X", info.VID, info.PID)
		}
	case "serial":
		if info.Device != "" {
			return fmt.Sprintf("serial:%s", info.Device)
		}
	case "network":
		if info.Host != "" {
			return fmt.Sprintf("network:%s:%d", info.Host, info.Port)
		}
	}

	hash := sha1.Sum([]byte(info.Description))
	return fmt.Sprintf("hash:%x", hash[:8])
}
