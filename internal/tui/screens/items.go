package screens

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/thereceipt/label-engine/internal/labels"
	"github.com/thereceipt/label-engine/internal/printer"
	"github.com/thereceipt/label-engine/internal/store"
	"github.com/thereceipt/label-engine/pkg/labelformat"
)

const printerDefault = "(printer default)"

// ItemsView lists stored items and prints labels for them
type ItemsView struct {
	app      *tview.Application
	manager  *printer.Manager
	items    *store.Store
	labels   *labels.Service
	table    *tview.Table
	form     *tview.Form
	result   *tview.TextView
	layout   *tview.Flex
	rows     []store.Item
	printers []*printer.Printer
}

// NewItemsView creates the items screen
func NewItemsView(app *tview.Application, manager *printer.Manager, items *store.Store, svc *labels.Service) *ItemsView {
	v := &ItemsView{
		app:     app,
		manager: manager,
		items:   items,
		labels:  svc,
	}

	v.setupUI()
	return v
}

func (v *ItemsView) setupUI() {
	v.table = tview.NewTable()
	v.table.SetBorder(true)
	v.table.SetTitle("Items")
	v.table.SetSelectable(true, false)
	v.table.SetFixed(1, 0)
	v.table.SetSelectedFunc(func(row, column int) {
		v.app.SetFocus(v.form)
	})

	v.result = tview.NewTextView()
	v.result.SetBorder(true)
	v.result.SetTitle("Result")
	v.result.SetDynamicColors(true)

	v.form = tview.NewForm()
	v.form.SetBorder(true)
	v.form.SetTitle("Print Labels")
	v.form.AddDropDown("Printer", nil, 0, nil)
	v.form.AddDropDown("Preset", append([]string{printerDefault}, labelformat.SpecNames()...), 0, nil)
	v.form.AddInputField("Copies", "1", 5, tview.InputFieldInteger, nil)
	v.form.AddButton("Print Selected", v.printSelected)
	v.form.AddButton("Print All", v.printAll)
	v.form.AddButton("Back", func() {
		v.app.SetFocus(v.table)
	})

	right := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(v.form, 0, 1, false).
		AddItem(v.result, 0, 1, false)

	v.layout = tview.NewFlex().
		AddItem(v.table, 0, 2, true).
		AddItem(right, 0, 1, false)

	v.table.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyRune && event.Rune() == 'r' {
			v.Refresh()
			return nil
		}
		return event
	})

	v.Refresh()
}

// Refresh reloads items and printers
func (v *ItemsView) Refresh() {
	v.table.Clear()
	headers := []string{"Name", "Barcode", "Sale", "Stock", "Brand"}
	for col, h := range headers {
		v.table.SetCell(0, col, tview.NewTableCell(h).SetAlign(tview.AlignCenter).SetSelectable(false))
	}

	rows, err := v.items.List(context.Background())
	if err != nil {
		v.result.SetText(fmt.Sprintf("[red]✗ %v[white]", err))
		return
	}
	v.rows = rows

	for i, it := range rows {
		row := i + 1
		v.table.SetCell(row, 0, tview.NewTableCell(it.Name))
		v.table.SetCell(row, 1, tview.NewTableCell(string(it.Code)))
		v.table.SetCell(row, 2, tview.NewTableCell(labelformat.FormatPrice(it.SalePrice)).SetAlign(tview.AlignRight))
		v.table.SetCell(row, 3, tview.NewTableCell(strconv.Itoa(it.Stock)).SetAlign(tview.AlignRight))
		v.table.SetCell(row, 4, tview.NewTableCell(it.Brand))
	}

	v.printers = v.manager.GetAllPrinters()
	names := make([]string, len(v.printers))
	for i, p := range v.printers {
		names[i] = p.DisplayName()
	}
	dd := v.form.GetFormItem(0).(*tview.DropDown)
	dd.SetOptions(names, nil)
	if len(names) > 0 {
		dd.SetCurrentOption(0)
	}
}

func (v *ItemsView) selection() (printerID, spec string, copies int, ok bool) {
	idx, _ := v.form.GetFormItem(0).(*tview.DropDown).GetCurrentOption()
	if idx < 0 || idx >= len(v.printers) {
		v.result.SetText("[red]✗ No printer selected[white]")
		return "", "", 0, false
	}
	_, spec = v.form.GetFormItem(1).(*tview.DropDown).GetCurrentOption()
	if spec == printerDefault {
		spec = ""
	}
	copies, err := strconv.Atoi(strings.TrimSpace(v.form.GetFormItem(2).(*tview.InputField).GetText()))
	if err != nil || copies < 1 {
		copies = 1
	}
	return v.printers[idx].ID, spec, copies, true
}

func (v *ItemsView) printSelected() {
	row, _ := v.table.GetSelection()
	if row < 1 || row-1 >= len(v.rows) {
		v.result.SetText("[red]✗ No item selected[white]")
		return
	}
	printerID, spec, copies, ok := v.selection()
	if !ok {
		return
	}

	item := v.rows[row-1]
	res, err := v.labels.PrintStored(context.Background(), printerID, item.Name, spec, copies)
	if err != nil {
		v.result.SetText(fmt.Sprintf("[red]✗ %v[white]", err))
		return
	}
	v.showResult(res)
}

func (v *ItemsView) printAll() {
	printerID, spec, _, ok := v.selection()
	if !ok {
		return
	}

	res, err := v.labels.PrintAll(context.Background(), printerID, spec)
	if err != nil {
		v.result.SetText(fmt.Sprintf("[red]✗ %v[white]", err))
		return
	}
	v.showResult(res)
}

func (v *ItemsView) showResult(res *labels.PrintResult) {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[green]✓ Job queued:[white] %s\n", res.JobID))
	b.WriteString(fmt.Sprintf("[yellow]Preset:[white] %s\n", res.Spec))
	b.WriteString(fmt.Sprintf("[yellow]Sheets:[white] %d x %d\n", res.Sheets, res.Copies))
	for _, code := range res.ResolvedCodes {
		b.WriteString("  " + string(code) + "\n")
	}
	v.result.SetText(b.String())
	v.Refresh()
}

// GetRoot returns the root primitive for this screen
func (v *ItemsView) GetRoot() tview.Primitive {
	return v.layout
}
