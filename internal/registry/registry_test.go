package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "printer_registry.json")
	reg, err := New(path)
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	return reg, path
}

func TestNew_MissingFile(t *testing.T) {
	reg, path := newTestRegistry(t)
	if reg == nil {
		t.Fatal("Registry is nil")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected no file before the first save, got %v", err)
	}
}

func TestNew_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(path); err == nil {
		t.Error("Expected error for corrupt registry file")
	}
}

func TestGetPrinterID(t *testing.T) {
	tests := []struct {
		name string
		info PrinterInfo
	}{
		{"usb", PrinterInfo{Type: "usb", VID: 0x2D37, PID: 0x5101, Description: "LP46 Neo"}},
		{"serial", PrinterInfo{Type: "serial", Device: "/dev/ttyUSB0", Description: "Serial Label Printer"}},
		{"network", PrinterInfo{Type: "network", Host: "192.168.1.50", Port: 9100, Description: "Shelf Printer"}},
		{"unknown", PrinterInfo{Type: "bluetooth", Description: "Mystery"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, _ := newTestRegistry(t)

			id1 := reg.GetPrinterID(tt.info)
			if id1 == "" {
				t.Fatal("Expected non-empty printer ID")
			}
			if id2 := reg.GetPrinterID(tt.info); id1 != id2 {
				t.Errorf("Expected same ID for same printer: %s != %s", id1, id2)
			}
		})
	}
}

func TestSetAndGetPrinterName(t *testing.T) {
	reg, _ := newTestRegistry(t)
	id := reg.GetPrinterID(PrinterInfo{Type: "usb", VID: 0x2D37, PID: 0x5101, Description: "LP46"})

	if !reg.SetPrinterName(id, "Parts Counter") {
		t.Error("Expected successful name set")
	}
	if name := reg.GetPrinterName(id); name != "Parts Counter" {
		t.Errorf("Expected 'Parts Counter', got '%s'", name)
	}
	if reg.SetPrinterName("missing", "x") {
		t.Error("Expected name set to fail for unknown printer")
	}
}

func TestLabelSettings(t *testing.T) {
	reg, _ := newTestRegistry(t)
	id := reg.GetPrinterID(PrinterInfo{Type: "network", Host: "10.0.0.9", Port: 9100, Description: "Net", Protocol: ProtocolTSPL})

	if !reg.SetLabelSpec(id, "compact") {
		t.Fatal("Expected label spec to be stored")
	}
	if err := reg.SetProtocol(id, ProtocolESCPOS); err != nil {
		t.Fatalf("Expected protocol to be stored, got %v", err)
	}
	if err := reg.SetProtocol(id, "zpl"); err == nil {
		t.Error("Expected error for unsupported protocol")
	}
	if err := reg.SetProtocol("missing", ProtocolTSPL); err == nil {
		t.Error("Expected error for unknown printer")
	}

	entry := reg.GetPrinterInfo(id)
	if entry.LabelSpec != "compact" {
		t.Errorf("Expected label spec 'compact', got '%s'", entry.LabelSpec)
	}
	if entry.Protocol != ProtocolESCPOS {
		t.Errorf("Expected protocol escpos, got '%s'", entry.Protocol)
	}
}

func TestRemovePrinter(t *testing.T) {
	reg, _ := newTestRegistry(t)
	id := reg.GetPrinterID(PrinterInfo{Type: "usb", VID: 0x1234, PID: 0x5678, Description: "Test"})

	if !reg.RemovePrinter(id) {
		t.Error("Expected successful removal")
	}
	if entry := reg.GetPrinterInfo(id); entry != nil {
		t.Error("Expected nil after removal")
	}
	if reg.RemovePrinter(id) {
		t.Error("Expected second removal to fail")
	}
}

func TestPersistence(t *testing.T) {
	reg1, path := newTestRegistry(t)
	info := PrinterInfo{Type: "usb", VID: 0xAAAA, PID: 0xBBBB, Description: "Persistent Printer"}
	id1 := reg1.GetPrinterID(info)
	reg1.SetPrinterName(id1, "Persistent Name")
	reg1.SetLabelSpec(id1, "compact")

	reg2, err := New(path)
	if err != nil {
		t.Fatalf("Failed to reload registry: %v", err)
	}

	if id2 := reg2.GetPrinterID(info); id1 != id2 {
		t.Errorf("Expected same ID after reload: %s != %s", id1, id2)
	}
	entry := reg2.GetPrinterInfo(id1)
	if entry.Name != "Persistent Name" || entry.LabelSpec != "compact" {
		t.Errorf("Expected settings to persist, got %+v", entry)
	}
}

func TestGetAllAndEntries(t *testing.T) {
	reg, _ := newTestRegistry(t)

	reg.GetPrinterID(PrinterInfo{Type: "usb", VID: 0x1111, PID: 0x2222, Description: "Printer 1"})
	reg.GetPrinterID(PrinterInfo{Type: "serial", Device: "/dev/tty1", Description: "Printer 2"})

	if all := reg.GetAll(); len(all) != 2 {
		t.Errorf("Expected 2 printers, got %d", len(all))
	}
	entries := reg.Entries()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID > entries[1].ID {
		t.Error("Expected entries sorted by ID")
	}
}
