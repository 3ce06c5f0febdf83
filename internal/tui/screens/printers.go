package screens

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/thereceipt/label-engine/internal/printer"
	"github.com/thereceipt/label-engine/pkg/labelformat"
)

var protocols = []string{printer.ProtocolESCPOS, printer.ProtocolTSPL}

// PrinterSettings lists printers with their device details and edits the
// saved name, label preset and protocol of the selected one
type PrinterSettings struct {
	app      *tview.Application
	manager  *printer.Manager
	list     *tview.List
	details  *tview.TextView
	form     *tview.Form
	layout   *tview.Flex
	printers []*printer.Printer
	selected *printer.Printer
}

// NewPrinterSettings creates the printer settings screen
func NewPrinterSettings(app *tview.Application, manager *printer.Manager) *PrinterSettings {
	s := &PrinterSettings{
		app:     app,
		manager: manager,
	}

	s.setupUI()
	return s
}

func (s *PrinterSettings) setupUI() {
	s.list = tview.NewList()
	s.list.SetBorder(true)
	s.list.SetTitle("Printers")
	s.list.SetChangedFunc(func(index int, _, _ string, _ rune) {
		s.selectPrinter(index)
	})
	s.list.SetSelectedFunc(func(index int, _, _ string, _ rune) {
		s.selectPrinter(index)
		s.app.SetFocus(s.form)
	})

	s.details = tview.NewTextView()
	s.details.SetBorder(true)
	s.details.SetTitle("Printer Details")
	s.details.SetDynamicColors(true)

	s.form = tview.NewForm()
	s.form.SetBorder(true)
	s.form.SetTitle("Settings")
	s.form.AddInputField("Name", "", 30, nil, nil)
	s.form.AddDropDown("Label preset", labelformat.SpecNames(), 0, nil)
	s.form.AddDropDown("Protocol", protocols, 0, nil)
	s.form.AddButton("Save", s.save)
	s.form.AddButton("Back", func() {
		s.app.SetFocus(s.list)
	})

	right := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(s.details, 0, 1, false).
		AddItem(s.form, 0, 1, false)

	s.layout = tview.NewFlex().
		AddItem(s.list, 0, 1, true).
		AddItem(right, 0, 2, false)

	s.list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyRune {
			switch event.Rune() {
			case 'r':
				s.Refresh()
				return nil
			case 'd':
				s.detect()
				return nil
			}
		}
		return event
	})

	s.Refresh()
}

// Refresh reloads the printer list without rescanning devices
func (s *PrinterSettings) Refresh() {
	s.printers = s.manager.GetAllPrinters()
	s.list.Clear()

	if len(s.printers) == 0 {
		s.list.AddItem("No printers detected", "press 'd' to scan", 0, nil)
		s.details.SetText("[yellow]No printers connected[white]")
		s.selected = nil
		return
	}

	for _, p := range s.printers {
		secondary := fmt.Sprintf("%s • %s", strings.ToUpper(p.Type), p.Protocol)
		if p.LabelSpec != "" {
			secondary += " • " + p.LabelSpec
		}
		s.list.AddItem("🟢 "+p.DisplayName(), secondary, 0, nil)
	}
	s.selectPrinter(s.list.GetCurrentItem())
}

func (s *PrinterSettings) detect() {
	printers, err := s.manager.DetectPrinters()
	s.Refresh()
	if err != nil {
		s.details.SetText(fmt.Sprintf("[red]✗ Detection failed: %v[white]", err))
		return
	}
	s.details.SetText(fmt.Sprintf("[green]✓ Detected %d printer(s)[white]", len(printers)))
}

func (s *PrinterSettings) selectPrinter(index int) {
	if index < 0 || index >= len(s.printers) {
		return
	}
	p := s.printers[index]
	s.selected = p

	var details strings.Builder
	details.WriteString(fmt.Sprintf("[yellow]ID:[white] %s\n", p.ID))
	details.WriteString(fmt.Sprintf("[yellow]Type:[white] %s\n", strings.ToUpper(p.Type)))
	details.WriteString(fmt.Sprintf("[yellow]Description:[white] %s\n", p.Description))
	if p.Device != "" {
		details.WriteString(fmt.Sprintf("[yellow]Device:[white] %s\n", p.Device))
	}
	if p.Host != "" {
		details.WriteString(fmt.Sprintf("[yellow]Address:[white] %s:%d\n", p.Host, p.Port))
	}
	if p.VID > 0 {
		details.WriteString(fmt.Sprintf("[yellow]VID/PID:[white] 0x%04X/0x%04X\n", p.VID, p.PID))
	}
	details.WriteString(fmt.Sprintf("[yellow]Protocol:[white] %s\n", p.Protocol))
	spec := p.LabelSpec
	if spec == "" {
		spec = "(server default)"
	}
	details.WriteString(fmt.Sprintf("[yellow]Label preset:[white] %s\n", spec))
	details.WriteString("\n[yellow]Enter to edit, 'r' to refresh, 'd' to scan[white]")
	s.details.SetText(details.String())

	s.form.GetFormItem(0).(*tview.InputField).SetText(p.Name)
	s.form.GetFormItem(1).(*tview.DropDown).SetCurrentOption(indexOf(labelformat.SpecNames(), p.LabelSpec))
	s.form.GetFormItem(2).(*tview.DropDown).SetCurrentOption(indexOf(protocols, p.Protocol))
}

func (s *PrinterSettings) save() {
	if s.selected == nil {
		s.details.SetText("[red]✗ No printer selected[white]")
		return
	}
	id := s.selected.ID

	name := strings.TrimSpace(s.form.GetFormItem(0).(*tview.InputField).GetText())
	_, spec := s.form.GetFormItem(1).(*tview.DropDown).GetCurrentOption()
	_, protocol := s.form.GetFormItem(2).(*tview.DropDown).GetCurrentOption()

	if !s.manager.SetPrinterName(id, name) {
		s.details.SetText(fmt.Sprintf("[red]✗ Printer not found: %s[white]\n\n[yellow]Try refreshing the list[white]", id))
		return
	}
	if err := s.manager.SetLabelSpec(id, spec); err != nil {
		s.details.SetText(fmt.Sprintf("[red]✗ %v[white]", err))
		return
	}
	if err := s.manager.SetProtocol(id, protocol); err != nil {
		s.details.SetText(fmt.Sprintf("[red]✗ %v[white]", err))
		return
	}

	s.Refresh()
	s.app.SetFocus(s.list)
	s.details.SetText(fmt.Sprintf("[green]✓ Saved[white]\n\n[yellow]Name:[white] %s\n[yellow]Preset:[white] %s\n[yellow]Protocol:[white] %s", name, spec, protocol))
}

// GetRoot returns the root primitive for this screen
func (s *PrinterSettings) GetRoot() tview.Primitive {
	return s.layout
}

func indexOf(options []string, value string) int {
	for i, o := range options {
		if o == value {
			return i
		}
	}
	return 0
}
