package screens

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/thereceipt/label-engine/internal/printer"
)

// JobsView shows detailed information about print jobs
type JobsView struct {
	app     *tview.Application
	queue   *printer.PrintQueue
	table   *tview.Table
	details *tview.TextView
	layout  *tview.Flex
	jobs    []*printer.PrintJob
}

// NewJobsView creates a new jobs view screen
func NewJobsView(app *tview.Application, queue *printer.PrintQueue) *JobsView {
	j := &JobsView{
		app:   app,
		queue: queue,
	}

	j.setupUI()
	return j
}

func (j *JobsView) setupUI() {
	j.table = tview.NewTable()
	j.table.SetBorder(true)
	j.table.SetTitle("Print Jobs")
	j.table.SetSelectable(true, false)
	j.table.SetFixed(1, 0)
	j.table.SetSelectionChangedFunc(func(row, column int) {
		j.selectJob(row)
	})

	j.details = tview.NewTextView()
	j.details.SetBorder(true)
	j.details.SetTitle("Job Details")
	j.details.SetDynamicColors(true)

	j.layout = tview.NewFlex().
		AddItem(j.table, 0, 2, true).
		AddItem(j.details, 0, 1, false)

	j.table.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyRune {
			switch event.Rune() {
			case 'r':
				j.Refresh()
				return nil
			case 'c':
				j.clearCompleted()
				return nil
			}
		}
		return event
	})

	j.Refresh()
}

// Refresh reloads the job table
func (j *JobsView) Refresh() {
	j.table.Clear()

	headers := []string{"ID", "Printer", "Spec", "Sheets", "Status", "Retries", "Age"}
	for col, h := range headers {
		j.table.SetCell(0, col, tview.NewTableCell(h).SetAlign(tview.AlignCenter).SetSelectable(false))
	}

	j.jobs = j.queue.GetAllJobs()

	for i, job := range j.jobs {
		row := i + 1
		j.table.SetCell(row, 0, tview.NewTableCell(shortID(job.ID)))
		j.table.SetCell(row, 1, tview.NewTableCell(shortID(job.PrinterID)))
		j.table.SetCell(row, 2, tview.NewTableCell(job.Spec))
		j.table.SetCell(row, 3, tview.NewTableCell(fmt.Sprintf("%d x%d", job.Sheets, job.Copies)))
		j.table.SetCell(row, 4, tview.NewTableCell(StatusIcon(job.Status)+" "+job.Status))
		j.table.SetCell(row, 5, tview.NewTableCell(fmt.Sprintf("%d", job.Retries)))
		j.table.SetCell(row, 6, tview.NewTableCell(time.Since(job.CreatedAt).Truncate(time.Second).String()))
	}

	if len(j.jobs) == 0 {
		j.details.SetText("[yellow]No jobs in queue[white]")
	}
}

func (j *JobsView) selectJob(row int) {
	if row < 1 || row-1 >= len(j.jobs) {
		return
	}
	job := j.jobs[row-1]

	var details strings.Builder
	details.WriteString(fmt.Sprintf("[yellow]Job ID:[white] %s\n", job.ID))
	details.WriteString(fmt.Sprintf("[yellow]Printer ID:[white] %s\n", job.PrinterID))
	details.WriteString(fmt.Sprintf("[yellow]Status:[white] %s %s\n", StatusIcon(job.Status), job.Status))
	details.WriteString(fmt.Sprintf("[yellow]Label preset:[white] %s\n", job.Spec))
	details.WriteString(fmt.Sprintf("[yellow]Sheets:[white] %d x %d copies\n", job.Sheets, job.Copies))
	details.WriteString(fmt.Sprintf("[yellow]Retries:[white] %d\n", job.Retries))
	details.WriteString(fmt.Sprintf("[yellow]Created:[white] %s\n", job.CreatedAt.Format("2006-01-02 15:04:05")))

	if len(job.ResolvedCodes) > 0 {
		details.WriteString("\n[yellow]Printed codes:[white]\n")
		for _, code := range job.ResolvedCodes {
			details.WriteString("  " + string(code) + "\n")
		}
	}
	if job.Error != "" {
		details.WriteString(fmt.Sprintf("\n[red]Error:[white] %s\n", job.Error))
	}

	details.WriteString("\n[yellow]Press 'r' to refresh, 'c' to clear completed[white]")
	j.details.SetText(details.String())
}

func (j *JobsView) clearCompleted() {
	removed := j.queue.ClearCompleted()
	j.Refresh()
	j.details.SetText(fmt.Sprintf("[green]✓ Cleared %d completed job(s)[white]", removed))
}

// StatusIcon returns the icon shown next to a job status
func StatusIcon(status string) string {
	switch status {
	case printer.StatusQueued:
		return "⏳"
	case printer.StatusPrinting:
		return "🟡"
	case printer.StatusCompleted:
		return "✅"
	case printer.StatusFailed:
		return "❌"
	default:
		return "⚪"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// GetRoot returns the root primitive for this screen
func (j *JobsView) GetRoot() tview.Primitive {
	return j.layout
}
