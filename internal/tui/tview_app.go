// Package tui is the terminal dashboard of the label server
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/thereceipt/label-engine/internal/command"
	"github.com/thereceipt/label-engine/internal/labels"
	"github.com/thereceipt/label-engine/internal/printer"
	"github.com/thereceipt/label-engine/internal/store"
	"github.com/thereceipt/label-engine/internal/tui/screens"
	"github.com/thereceipt/label-engine/pkg/labelformat"
)

// Deps are the services the dashboard shows and drives
type Deps struct {
	Manager  *printer.Manager
	Queue    *printer.PrintQueue
	Items    *store.Store
	Labels   *labels.Service
	Executor *command.Executor
	Port     int
	Spec     string
}

// TViewApp is the main TUI application using tview
type TViewApp struct {
	App      *tview.Application
	manager  *printer.Manager
	queue    *printer.PrintQueue
	items    *store.Store
	executor *command.Executor
	port     int
	spec     string

	// Main layout
	flex *tview.Flex

	// Panels
	printersList *tview.List
	queueTable   *tview.Table
	itemsTable   *tview.Table
	statusBox    *tview.TextView
	logsArea     *tview.TextView
	commandInput *tview.InputField

	// State
	logsMu    sync.Mutex
	logs      []string
	maxLogs   int
	startTime time.Time

	// Screens
	currentScreen  string // "main", "printers", "jobs", "items"
	printersScreen *screens.PrinterSettings
	jobsScreen     *screens.JobsView
	itemsScreen    *screens.ItemsView
}

// NewTViewApp creates a new tview-based TUI
func NewTViewApp(deps Deps) *TViewApp {
	t := &TViewApp{
		App:           tview.NewApplication(),
		manager:       deps.Manager,
		queue:         deps.Queue,
		items:         deps.Items,
		executor:      deps.Executor,
		port:          deps.Port,
		spec:          deps.Spec,
		logs:          make([]string, 0),
		maxLogs:       200,
		startTime:     time.Now(),
		currentScreen: "main",
	}

	t.setupUI()
	t.printersScreen = screens.NewPrinterSettings(t.App, deps.Manager)
	t.jobsScreen = screens.NewJobsView(t.App, deps.Queue)
	t.itemsScreen = screens.NewItemsView(t.App, deps.Manager, deps.Items, deps.Labels)
	return t
}

func (t *TViewApp) setupUI() {
	t.printersList = tview.NewList()
	t.printersList.SetBorder(true)
	t.printersList.SetTitle("Printers")

	t.queueTable = tview.NewTable()
	t.queueTable.SetBorder(true)
	t.queueTable.SetTitle("Print Queue")

	t.itemsTable = tview.NewTable()
	t.itemsTable.SetBorder(true)
	t.itemsTable.SetTitle("Items")

	t.statusBox = tview.NewTextView()
	t.statusBox.SetBorder(true)
	t.statusBox.SetTitle("Server Status")
	t.statusBox.SetDynamicColors(true)

	t.logsArea = tview.NewTextView()
	t.logsArea.SetBorder(true)
	t.logsArea.SetTitle("Server Logs")
	t.logsArea.SetDynamicColors(true)
	t.logsArea.SetScrollable(true)
	t.logsArea.SetChangedFunc(func() {
		t.App.Draw()
	})

	t.commandInput = tview.NewInputField().
		SetLabel("> ").
		SetFieldWidth(0).
		SetPlaceholder("Type a command (e.g., 'help')").
		SetDoneFunc(func(key tcell.Key) {
			if key == tcell.KeyEnter {
				cmd := t.commandInput.GetText()
				t.commandInput.SetText("")
				go t.executeCommand(cmd)
			}
		})

	topRow := tview.NewFlex().
		AddItem(t.printersList, 0, 1, false).
		AddItem(t.queueTable, 0, 1, false).
		AddItem(t.itemsTable, 0, 1, false).
		AddItem(t.statusBox, 0, 1, false)

	bottom := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.logsArea, 0, 3, false).
		AddItem(t.commandInput, 1, 0, true)

	t.flex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(topRow, 0, 1, false).
		AddItem(bottom, 0, 1, false)

	t.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if t.currentScreen != "main" {
			if event.Key() == tcell.KeyEsc {
				t.showMainScreen()
				return nil
			}
			return event
		}

		// Typing a command must not trigger navigation shortcuts
		if t.commandInput.HasFocus() {
			if event.Key() == tcell.KeyEsc {
				t.App.SetFocus(t.printersList)
				return nil
			}
			return event
		}

		switch event.Key() {
		case tcell.KeyCtrlC, tcell.KeyEsc:
			t.App.Stop()
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case ':':
				t.App.SetFocus(t.commandInput)
				return nil
			case 'q':
				t.App.Stop()
				return nil
			case 'p':
				t.showScreen("printers")
				return nil
			case 'j':
				t.showScreen("jobs")
				return nil
			case 'i':
				t.showScreen("items")
				return nil
			}
		}
		return event
	})

	t.App.SetRoot(t.flex, true)
}

// Run starts the TUI and blocks until it exits or ctx is cancelled
func (t *TViewApp) Run(ctx context.Context) error {
	t.refreshAll()

	go t.refreshTicker(ctx)
	go func() {
		<-ctx.Done()
		t.App.Stop()
	}()

	return t.App.Run()
}

func (t *TViewApp) refreshTicker(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.App.QueueUpdateDraw(t.refreshAll)
		}
	}
}

// RefreshPrinters redraws the printers panel from the UI goroutine
func (t *TViewApp) RefreshPrinters() {
	t.App.QueueUpdateDraw(t.refreshPrinters)
}

func (t *TViewApp) refreshAll() {
	t.refreshPrinters()
	t.refreshQueue()
	t.refreshItems()
	t.refreshStatus()
}

func (t *TViewApp) refreshPrinters() {
	t.printersList.Clear()

	printers := t.manager.GetAllPrinters()
	if len(printers) == 0 {
		t.printersList.AddItem("No printers detected", "type 'detect' to scan", 0, nil)
		return
	}

	for _, p := range printers {
		details := fmt.Sprintf("%s • %s", strings.ToUpper(p.Type), p.Protocol)
		if p.LabelSpec != "" {
			details += " • " + p.LabelSpec
		}
		t.printersList.AddItem("🟢 "+p.DisplayName(), details, 0, nil)
	}
}

func (t *TViewApp) refreshQueue() {
	t.queueTable.Clear()

	t.queueTable.SetCell(0, 0, tview.NewTableCell("Status").SetAlign(tview.AlignCenter).SetSelectable(false))
	t.queueTable.SetCell(0, 1, tview.NewTableCell("Sheets").SetAlign(tview.AlignCenter).SetSelectable(false))
	t.queueTable.SetCell(0, 2, tview.NewTableCell("Retries").SetAlign(tview.AlignCenter).SetSelectable(false))
	t.queueTable.SetCell(0, 3, tview.NewTableCell("Time").SetAlign(tview.AlignCenter).SetSelectable(false))

	jobs := t.queue.GetAllJobs()
	counts := make(map[string]int)

	for i, job := range jobs {
		row := i + 1
		t.queueTable.SetCell(row, 0, tview.NewTableCell(screens.StatusIcon(job.Status)+" "+job.Status))
		t.queueTable.SetCell(row, 1, tview.NewTableCell(fmt.Sprintf("%d x%d", job.Sheets, job.Copies)))
		t.queueTable.SetCell(row, 2, tview.NewTableCell(fmt.Sprintf("%d", job.Retries)))
		t.queueTable.SetCell(row, 3, tview.NewTableCell(time.Since(job.CreatedAt).Truncate(time.Second).String()))
		counts[job.Status]++
	}

	if len(jobs) > 0 {
		summary := fmt.Sprintf("[%d] Queued [%d] Printing [%d] Completed [%d] Failed",
			counts[printer.StatusQueued], counts[printer.StatusPrinting],
			counts[printer.StatusCompleted], counts[printer.StatusFailed])
		t.queueTable.SetCell(len(jobs)+1, 0, tview.NewTableCell(summary).SetSelectable(false))
	}
}

func (t *TViewApp) refreshItems() {
	t.itemsTable.Clear()

	t.itemsTable.SetCell(0, 0, tview.NewTableCell("Name").SetSelectable(false))
	t.itemsTable.SetCell(0, 1, tview.NewTableCell("Barcode").SetSelectable(false))
	t.itemsTable.SetCell(0, 2, tview.NewTableCell("Stock").SetSelectable(false))

	items, err := t.items.List(context.Background())
	if err != nil {
		t.itemsTable.SetCell(1, 0, tview.NewTableCell("[red]"+err.Error()))
		return
	}
	for i, it := range items {
		t.itemsTable.SetCell(i+1, 0, tview.NewTableCell(it.Name))
		t.itemsTable.SetCell(i+1, 1, tview.NewTableCell(string(it.Code)))
		t.itemsTable.SetCell(i+1, 2, tview.NewTableCell(fmt.Sprintf("%d", it.Stock)).SetAlign(tview.AlignRight))
	}
}

func (t *TViewApp) refreshStatus() {
	uptime := time.Since(t.startTime)
	hours := int(uptime.Hours())
	minutes := int(uptime.Minutes()) % 60

	status := fmt.Sprintf(`[green]🟢 Running[white]

Uptime: %dh %dm
API: :%d
Preset: %s
Printers: %d
Jobs: %d total`, hours, minutes, t.port, t.spec, len(t.manager.GetAllPrinters()), len(t.queue.GetAllJobs()))

	if totals, err := t.items.InventoryValue(context.Background()); err == nil {
		status += fmt.Sprintf("\nItems: %d (%d units)\nStock value: %s",
			totals.Items, totals.Units, labelformat.FormatPrice(totals.SaleValue))
	}

	t.statusBox.SetText(status)
}

// executeCommand handles dashboard navigation locally and sends everything else to the executor
func (t *TViewApp) executeCommand(cmd string) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return
	}

	t.AddLog(cmd, "command")

	switch strings.ToLower(parts[0]) {
	case "printers":
		t.App.QueueUpdateDraw(func() { t.showScreen("printers") })
		return
	case "jobs":
		t.App.QueueUpdateDraw(func() { t.showScreen("jobs") })
		return
	case "items":
		if len(parts) == 1 {
			t.App.QueueUpdateDraw(func() { t.showScreen("items") })
			return
		}
	case "clear":
		t.logsMu.Lock()
		t.logs = t.logs[:0]
		t.logsMu.Unlock()
		t.App.QueueUpdateDraw(func() { t.logsArea.Clear() })
		return
	case "refresh":
		t.App.QueueUpdateDraw(t.refreshAll)
		return
	case "quit", "exit":
		t.App.Stop()
		return
	}

	result := t.executor.Execute(context.Background(), cmd)
	if !result.Success {
		t.AddLog(result.Error, "error")
		return
	}
	if result.Message != "" {
		t.AddLog(result.Message, "info")
	}
	if parts[0] == "help" {
		t.AddLog("Dashboard: printers, jobs, items, clear, refresh, quit. Keys: p printers, j jobs, i items, : command, Esc back", "info")
	}
	t.App.QueueUpdateDraw(t.refreshAll)
}

func (t *TViewApp) showScreen(screenName string) {
	t.currentScreen = screenName

	var root tview.Primitive
	switch screenName {
	case "printers":
		t.printersScreen.Refresh()
		root = t.printersScreen.GetRoot()
	case "jobs":
		t.jobsScreen.Refresh()
		root = t.jobsScreen.GetRoot()
	case "items":
		t.itemsScreen.Refresh()
		root = t.itemsScreen.GetRoot()
	default:
		t.showMainScreen()
		return
	}
	t.App.SetRoot(root, true)
	t.App.SetFocus(root)
}

func (t *TViewApp) showMainScreen() {
	t.currentScreen = "main"
	t.App.SetRoot(t.flex, true)
	t.App.SetFocus(t.printersList)
}

// AddLog adds a log entry. Safe to call from any goroutine.
func (t *TViewApp) AddLog(message string, level string) {
	var color, icon string
	switch level {
	case "error":
		color = "[red]"
		icon = "❌"
	case "warning":
		color = "[yellow]"
		icon = "⚠️"
	case "command":
		color = "[cyan]"
		icon = ">"
	default:
		color = "[white]"
		icon = "ℹ️"
	}

	entry := fmt.Sprintf("%s[%s] %s %s[white]\n", color, time.Now().Format("15:04:05"), icon, tview.Escape(message))

	t.logsMu.Lock()
	t.logs = append(t.logs, entry)
	if len(t.logs) > t.maxLogs {
		t.logs = t.logs[len(t.logs)-t.maxLogs:]
	}
	text := strings.Join(t.logs, "")
	t.logsMu.Unlock()

	t.logsArea.SetText(text)
	t.logsArea.ScrollToEnd()
}

// LogWriter creates an io.Writer that writes to the logs panel
func (t *TViewApp) LogWriter() io.Writer {
	return &tviewLogWriter{app: t}
}

type tviewLogWriter struct {
	app *TViewApp
}

func (w *tviewLogWriter) Write(p []byte) (n int, err error) {
	message := strings.TrimSpace(string(p))
	if message != "" {
		level := "info"
		switch {
		case strings.Contains(message, "❌"):
			level = "error"
		case strings.Contains(message, "⚠️"):
			level = "warning"
		}
		w.app.AddLog(message, level)
	}
	return len(p), nil
}
