package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/thereceipt/label-engine/pkg/labelformat"
)

var (
	colorPrimary = lipgloss.Color("#7C3AED") // Purple
	colorSuccess = lipgloss.Color("#10B981") // Green
	colorError   = lipgloss.Color("#EF4444") // Red
	colorMuted   = lipgloss.Color("#64748B") // Slate 500

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorError)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	keyStyle     = lipgloss.NewStyle().Bold(true)
)

func printSuccess(w io.Writer, result *CommandResult) {
	if result.Message != "" {
		fmt.Fprintln(w, successStyle.Render("✓ "+result.Message))
	}
	if result.Data == nil {
		return
	}

	if printers, ok := result.Data["printers"].([]interface{}); ok {
		fmt.Fprintln(w, titleStyle.Render("\nPrinters"))
		for _, p := range printers {
			if m, ok := p.(map[string]interface{}); ok {
				name := str(m["name"])
				if name == "" {
					name = str(m["description"])
				}
				spec := str(m["label_spec"])
				if spec == "" {
					spec = "default"
				}
				fmt.Fprintf(w, "  %s  %s %s\n", keyStyle.Render(str(m["id"])), name,
					mutedStyle.Render(fmt.Sprintf("(%s, %s, %s)", m["type"], m["protocol"], spec)))
			}
		}
	}

	if items, ok := result.Data["items"].([]interface{}); ok {
		fmt.Fprintln(w, titleStyle.Render("\nItems"))
		for _, it := range items {
			if m, ok := it.(map[string]interface{}); ok {
				fmt.Fprintf(w, "  %-30s %s  %10s  stock %v\n",
					keyStyle.Render(str(m["name"])), str(m["code"]), money(m["sale_price"]), m["stock"])
			}
		}
	}

	if item, ok := result.Data["item"].(map[string]interface{}); ok {
		fmt.Fprintf(w, "  %s %s  %s  stock %v\n",
			keyStyle.Render(str(item["name"])), str(item["code"]), money(item["sale_price"]), item["stock"])
	}

	if totals, ok := result.Data["totals"].(map[string]interface{}); ok {
		fmt.Fprintf(w, "  items %v  units %v  cost %s  sale %s\n",
			totals["items"], totals["units"], money(totals["cost_value"]), money(totals["sale_value"]))
	}

	if jobs, ok := result.Data["jobs"].([]interface{}); ok {
		fmt.Fprintln(w, titleStyle.Render("\nJobs"))
		for _, j := range jobs {
			if m, ok := j.(map[string]interface{}); ok {
				printJob(w, m)
			}
		}
	}

	if job, ok := result.Data["job"].(map[string]interface{}); ok {
		printJob(w, job)
	}

	if presets, ok := result.Data["presets"].([]interface{}); ok {
		fmt.Fprintln(w, titleStyle.Render("\nPresets"))
		for _, p := range presets {
			if m, ok := p.(map[string]interface{}); ok {
				fmt.Fprintf(w, "  %-12s %vx%v  %v slot(s)\n",
					keyStyle.Render(str(m["name"])), m["canvas_width"], m["canvas_height"], m["slots"])
			}
		}
	}

	if jobID, ok := result.Data["job_id"].(string); ok {
		fmt.Fprintf(w, "Job ID: %s\n", jobID)
	}
	if codes, ok := result.Data["resolved_codes"].([]interface{}); ok && len(codes) > 0 {
		parts := make([]string, len(codes))
		for i, c := range codes {
			parts[i] = str(c)
		}
		fmt.Fprintf(w, "Codes: %s\n", strings.Join(parts, ", "))
	}
	if printerID, ok := result.Data["printer_id"].(string); ok && result.Data["job_id"] == nil {
		fmt.Fprintf(w, "Printer ID: %s\n", printerID)
	}
}

func printJob(w io.Writer, m map[string]interface{}) {
	line := fmt.Sprintf("  %s  %-10s printer %s  %v sheet(s) x%v",
		keyStyle.Render(str(m["id"])), str(m["status"]), str(m["printer_id"]), m["sheets"], m["copies"])
	if e := str(m["error"]); e != "" {
		line += "  " + errorStyle.Render(e)
	}
	fmt.Fprintln(w, line)
}

func printError(w io.Writer, result *CommandResult) {
	msg := result.Error
	if msg == "" {
		msg = result.Message
	}
	fmt.Fprintln(w, errorStyle.Render("Error: ")+msg)
}

func str(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// money formats a JSON number of minor units
func money(v interface{}) string {
	f, ok := v.(float64)
	if !ok {
		return str(v)
	}
	return labelformat.FormatPrice(int64(f))
}
