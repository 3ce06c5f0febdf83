package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/thereceipt/label-engine/internal/labels"
	"github.com/thereceipt/label-engine/internal/printer"
	"github.com/thereceipt/label-engine/internal/store"
	"github.com/thereceipt/label-engine/pkg/labelformat"
)

// handlePrint prints one stored item
// Usage: print <printer-id> <item-name> [copies] [--spec name]
func (e *Executor) handlePrint(ctx context.Context, args []string) *Result {
	args, flags := splitFlags(args)
	if len(args) < 2 {
		return failure("usage: print <printer-id> <item-name> [copies] [--spec name]")
	}

	printerID := args[0]
	name := args[1]
	copies := 1
	if len(args) >= 3 {
		n, err := strconv.Atoi(args[2])
		if err != nil || n < 1 {
			return failure("invalid copies: %s", args[2])
		}
		copies = n
	}

	res, err := e.labels.PrintStored(ctx, printerID, name, flags["spec"], copies)
	if errors.Is(err, store.ErrNotFound) {
		return failure("item not found: %s", name)
	}
	if err != nil {
		return failure("%v", err)
	}

	return &Result{
		Success: true,
		Message: fmt.Sprintf("Print job queued: %s", res.JobID),
		Data:    printData(res),
	}
}

// handlePrintAll prints a sheet for every stocked item
// Usage: print-all <printer-id> [--spec name]
func (e *Executor) handlePrintAll(ctx context.Context, args []string) *Result {
	args, flags := splitFlags(args)
	if len(args) < 1 {
		return failure("usage: print-all <printer-id> [--spec name]")
	}

	res, err := e.labels.PrintAll(ctx, args[0], flags["spec"])
	if err != nil {
		return failure("%v", err)
	}

	return &Result{
		Success: true,
		Message: fmt.Sprintf("Print job queued: %s (%d sheet(s))", res.JobID, res.Sheets),
		Data:    printData(res),
	}
}

func printData(res *labels.PrintResult) map[string]interface{} {
	return map[string]interface{}{
		"job_id":         res.JobID,
		"printer_id":     res.PrinterID,
		"spec":           res.Spec,
		"sheets":         res.Sheets,
		"copies":         res.Copies,
		"resolved_codes": res.ResolvedCodes,
	}
}

// handleItem manages stored items
// Usage: item list | add <name> <purchase> <profit%> <stock> [--code c] [--brand b] [--sale p] | delete <name> | stock <name> <qty> | value
func (e *Executor) handleItem(ctx context.Context, args []string) *Result {
	if len(args) == 0 {
		return failure("usage: item <list|add|delete|stock|value>")
	}

	subcommand := args[0]
	args, flags := splitFlags(args[1:])

	switch subcommand {
	case "list":
		items, err := e.items.List(ctx)
		if err != nil {
			return failure("%v", err)
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Found %d item(s)", len(items)),
			Data: map[string]interface{}{
				"items": items,
			},
		}

	case "add":
		if len(args) < 4 {
			return failure("usage: item add <name> <purchase> <profit%%> <stock> [--code c] [--brand b] [--sale p]")
		}
		purchase, err := labelformat.ParseAmount(args[1])
		if err != nil {
			return failure("invalid purchase price: %s", args[1])
		}
		profit, err := labelformat.ParseAmount(args[2])
		if err != nil {
			return failure("invalid profit: %s", args[2])
		}
		stock, err := strconv.Atoi(args[3])
		if err != nil {
			return failure("invalid stock: %s", args[3])
		}
		var sale int64
		if s, ok := flags["sale"]; ok {
			sale, err = labelformat.ParseAmount(s)
			if err != nil {
				return failure("invalid sale price: %s", s)
			}
		}

		item, err := e.items.Add(ctx, store.NewItem{
			Name:          args[0],
			Code:          flags["code"],
			PurchasePrice: purchase,
			ProfitBP:      profit,
			SalePrice:     sale,
			Stock:         stock,
			Brand:         flags["brand"],
		})
		if err != nil {
			return failure("%v", err)
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Added %s (%s) at %s", item.Name, item.Code, labelformat.FormatPrice(item.SalePrice)),
			Data: map[string]interface{}{
				"item": item,
			},
		}

	case "delete":
		if len(args) < 1 {
			return failure("usage: item delete <name>")
		}
		if err := e.items.Delete(ctx, args[0]); err != nil {
			return failure("%v: %s", err, args[0])
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Deleted item %s", args[0]),
		}

	case "stock":
		if len(args) < 2 {
			return failure("usage: item stock <name> <qty>")
		}
		qty, err := strconv.Atoi(args[1])
		if err != nil {
			return failure("invalid quantity: %s", args[1])
		}
		if err := e.items.UpdateStock(ctx, args[0], qty); err != nil {
			return failure("%v", err)
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Stock of %s set to %d", args[0], qty),
		}

	case "value":
		totals, err := e.items.InventoryValue(ctx)
		if err != nil {
			return failure("%v", err)
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("%d item(s), %d unit(s), cost %s, sale %s", totals.Items, totals.Units,
				labelformat.FormatPrice(totals.CostValue), labelformat.FormatPrice(totals.SaleValue)),
			Data: map[string]interface{}{
				"totals": totals,
			},
		}

	default:
		return failure("unknown item subcommand: %s. Use: list, add, delete, stock, value", subcommand)
	}
}

// handlePrinter handles printer commands
// Usage: printer list | add-network <host> [port] | rename <id> <name> | preset <id> <spec> | protocol <id> <escpos|tspl>
func (e *Executor) handlePrinter(args []string) *Result {
	if len(args) == 0 {
		return failure("usage: printer <list|add-network|rename|preset|protocol>")
	}

	subcommand := args[0]

	switch subcommand {
	case "list":
		printers := e.manager.GetAllPrinters()
		printerList := make([]map[string]interface{}, len(printers))
		for i, p := range printers {
			printerList[i] = map[string]interface{}{
				"id":          p.ID,
				"type":        p.Type,
				"description": p.Description,
				"name":        p.Name,
				"protocol":    p.Protocol,
				"label_spec":  p.LabelSpec,
			}
			if p.Type == "network" {
				printerList[i]["host"] = p.Host
				printerList[i]["port"] = p.Port
			}
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Found %d printer(s)", len(printers)),
			Data: map[string]interface{}{
				"printers": printerList,
			},
		}

	case "add-network":
		if len(args) < 2 {
			return failure("usage: printer add-network <host> [port]")
		}
		host := args[1]
		port := printer.DefaultNetworkPort
		if len(args) >= 3 {
			var err error
			port, err = strconv.Atoi(args[2])
			if err != nil {
				return failure("invalid port: %s", args[2])
			}
		}
		description := fmt.Sprintf("Network: %s:%d", host, port)
		printerID := e.manager.AddNetworkPrinter(host, port, description)
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Added network printer: %s", description),
			Data: map[string]interface{}{
				"printer_id": printerID,
				"printer":    e.manager.GetPrinter(printerID),
			},
		}

	case "rename":
		if len(args) < 3 {
			return failure("usage: printer rename <id> <name>")
		}
		if !e.manager.SetPrinterName(args[1], args[2]) {
			return failure("printer not found: %s", args[1])
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Renamed printer %s to %s", args[1], args[2]),
		}

	case "preset":
		if len(args) < 3 {
			return failure("usage: printer preset <id> <spec>")
		}
		if err := e.manager.SetLabelSpec(args[1], args[2]); err != nil {
			return failure("%v", err)
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Printer %s now prints %s labels", args[1], args[2]),
		}

	case "protocol":
		if len(args) < 3 {
			return failure("usage: printer protocol <id> <escpos|tspl>")
		}
		if err := e.manager.SetProtocol(args[1], args[2]); err != nil {
			return failure("%v", err)
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Printer %s now speaks %s", args[1], args[2]),
		}

	default:
		return failure("unknown printer subcommand: %s. Use: list, add-network, rename, preset, protocol", subcommand)
	}
}

// handleJob handles job commands
// Usage: job list | status <id> | clear
func (e *Executor) handleJob(args []string) *Result {
	if len(args) == 0 {
		return failure("usage: job <list|status|clear>")
	}

	switch args[0] {
	case "list":
		jobs := e.queue.GetAllJobs()
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Found %d job(s)", len(jobs)),
			Data: map[string]interface{}{
				"jobs": jobs,
			},
		}

	case "status":
		if len(args) < 2 {
			return failure("usage: job status <id>")
		}
		job := e.queue.GetJob(args[1])
		if job == nil {
			return failure("job not found: %s", args[1])
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Job %s is %s", job.ID, job.Status),
			Data: map[string]interface{}{
				"job": job,
			},
		}

	case "clear":
		removed := e.queue.ClearCompleted()
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Cleared %d completed job(s)", removed),
		}

	default:
		return failure("unknown job subcommand: %s. Use: list, status, clear", args[0])
	}
}

// handlePresets lists the label presets
func (e *Executor) handlePresets(args []string) *Result {
	specs := labelformat.Specs()
	return &Result{
		Success: true,
		Message: fmt.Sprintf("Found %d preset(s)", len(specs)),
		Data: map[string]interface{}{
			"presets": specs,
		},
	}
}

// handleDetect handles detect command
func (e *Executor) handleDetect(args []string) *Result {
	printers, err := e.manager.DetectPrinters()
	if err != nil {
		return failure("detection failed: %v", err)
	}
	return &Result{
		Success: true,
		Message: fmt.Sprintf("Detected %d printer(s)", len(printers)),
		Data: map[string]interface{}{
			"count": len(printers),
		},
	}
}

// handleHelp handles help command
func (e *Executor) handleHelp(args []string) *Result {
	helpText := `Available Commands:

  print <printer-id> <item-name> [copies] [--spec name]
    Print a sheet of labels for a stored item

  print-all <printer-id> [--spec name]
    Print one sheet for every item with stock

  item list
    List stored items

  item add <name> <purchase> <profit%> <stock> [--code c] [--brand b] [--sale p]
    Add an item (empty code generates one)

  item delete <name>
  item stock <name> <qty>
  item value
    Delete an item, set its stock, show inventory value

  printer list
    List all detected printers

  printer add-network <host> [port]
    Add a network printer (default port: 9100)

  printer rename <id> <name>
  printer preset <id> <spec>
  printer protocol <id> <escpos|tspl>
    Set a printer's name, default label preset or command language

  job list
  job status <id>
  job clear
    Inspect the print queue

  presets
    List label presets

  detect
    Detect/scan for printers

  help
    Show this help message

Examples:
  item add "Brake Pad" 1000 25 4 --brand "AUTO GEEK"
  print printer-123 "Brake Pad" 2
  print-all printer-123 --spec compact
  printer preset printer-123 compact
`

	return &Result{
		Success: true,
		Message: helpText,
	}
}
