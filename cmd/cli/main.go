package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	defaultServerURL = "http://localhost:12212"
)

// Version is set during build via ldflags
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var serverURL string

	root := &cobra.Command{
		Use:   "labelctl",
		Short: "Label Engine CLI",
		Long: `Control a running label engine or render labels locally.

Examples:
  labelctl render --name "Brake pads" --code 907340314386 --price 12.50 --out pads.png
  labelctl items add "Brake pads" 8.00 25 12
  labelctl print usb-1234 "Brake pads" 2
  labelctl print-all usb-1234 --spec compact
  labelctl printers add-network 192.168.1.100 9100
  labelctl printers preset usb-1234 compact
  labelctl jobs status job-456
  labelctl -s http://localhost:8080 printers list`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&serverURL, "server", "s", defaultServerURL, "server URL")

	client := func() *Client { return NewClient(serverURL) }

	root.AddCommand(
		newRenderCmd(),
		newPrintCmd(client),
		newPrintAllCmd(client),
		newItemsCmd(client),
		newPrintersCmd(client),
		newJobsCmd(client),
		remoteCmd(client, "presets", "List label presets", cobra.NoArgs, "presets"),
		remoteCmd(client, "detect", "Scan for printers", cobra.NoArgs, "detect"),
	)
	return root
}

// remoteCmd builds a command that forwards its arguments to the server after prefix
func remoteCmd(client func() *Client, use, short string, args cobra.PositionalArgs, prefix ...string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemote(cmd, client(), append(append([]string{}, prefix...), args...)...)
		},
	}
}

func runRemote(cmd *cobra.Command, c *Client, args ...string) error {
	result := c.Execute(args...)
	if !result.Success {
		printError(cmd.ErrOrStderr(), result)
		return fmt.Errorf("command failed")
	}
	printSuccess(cmd.OutOrStdout(), result)
	return nil
}

func newPrintCmd(client func() *Client) *cobra.Command {
	var spec string
	cmd := &cobra.Command{
		Use:   "print <printer-id> <item-name> [copies]",
		Short: "Print a sheet of labels for a stored item",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			line := append([]string{"print"}, args...)
			if spec != "" {
				line = append(line, "--spec="+spec)
			}
			return runRemote(cmd, client(), line...)
		},
	}
	cmd.Flags().StringVar(&spec, "spec", "", "label preset (default: printer's preset)")
	return cmd
}

func newPrintAllCmd(client func() *Client) *cobra.Command {
	var spec string
	cmd := &cobra.Command{
		Use:   "print-all <printer-id>",
		Short: "Print labels for every stocked item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			line := []string{"print-all", args[0]}
			if spec != "" {
				line = append(line, "--spec="+spec)
			}
			return runRemote(cmd, client(), line...)
		},
	}
	cmd.Flags().StringVar(&spec, "spec", "", "label preset (default: printer's preset)")
	return cmd
}

func newItemsCmd(client func() *Client) *cobra.Command {
	items := &cobra.Command{
		Use:     "items",
		Aliases: []string{"item"},
		Short:   "Manage stored items",
	}

	var code, brand, sale string
	add := &cobra.Command{
		Use:   "add <name> <purchase> <profit%> <stock>",
		Short: "Add an item; the barcode is generated unless --code is given",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			line := append([]string{"item", "add"}, args...)
			if code != "" {
				line = append(line, "--code="+code)
			}
			if brand != "" {
				line = append(line, "--brand="+brand)
			}
			if sale != "" {
				line = append(line, "--sale="+sale)
			}
			return runRemote(cmd, client(), line...)
		},
	}
	add.Flags().StringVar(&code, "code", "", "product code")
	add.Flags().StringVar(&brand, "brand", "", "brand line")
	add.Flags().StringVar(&sale, "sale", "", "sale price (default: purchase plus profit)")

	var out string
	export := &cobra.Command{
		Use:   "export",
		Short: "Download the inventory as an Excel workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			if err := client().Download("/items/export", f); err != nil {
				f.Close()
				os.Remove(out)
				printError(cmd.ErrOrStderr(), &CommandResult{Error: err.Error()})
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ Exported to "+out))
			return nil
		},
	}
	export.Flags().StringVarP(&out, "out", "o", "items.xlsx", "output file")

	items.AddCommand(
		remoteCmd(client, "list", "List stored items", cobra.NoArgs, "item", "list"),
		add,
		remoteCmd(client, "delete <name>", "Delete an item", cobra.ExactArgs(1), "item", "delete"),
		remoteCmd(client, "stock <name> <qty>", "Set an item's stock", cobra.ExactArgs(2), "item", "stock"),
		remoteCmd(client, "value", "Show inventory totals", cobra.NoArgs, "item", "value"),
		export,
	)
	return items
}

func newPrintersCmd(client func() *Client) *cobra.Command {
	printers := &cobra.Command{
		Use:     "printers",
		Aliases: []string{"printer"},
		Short:   "Manage printers",
	}
	printers.AddCommand(
		remoteCmd(client, "list", "List known printers", cobra.NoArgs, "printer", "list"),
		remoteCmd(client, "add-network <host> [port]", "Add a network printer (default port 9100)", cobra.RangeArgs(1, 2), "printer", "add-network"),
		remoteCmd(client, "rename <id> <name>", "Set a printer's display name", cobra.ExactArgs(2), "printer", "rename"),
		remoteCmd(client, "preset <id> <spec>", "Set a printer's label preset", cobra.ExactArgs(2), "printer", "preset"),
		remoteCmd(client, "protocol <id> <escpos|tspl>", "Set a printer's command language", cobra.ExactArgs(2), "printer", "protocol"),
	)
	return printers
}

func newJobsCmd(client func() *Client) *cobra.Command {
	jobs := &cobra.Command{
		Use:     "jobs",
		Aliases: []string{"job"},
		Short:   "Inspect the print queue",
	}
	jobs.AddCommand(
		remoteCmd(client, "list", "List print jobs", cobra.NoArgs, "job", "list"),
		remoteCmd(client, "status <id>", "Show one job", cobra.ExactArgs(1), "job", "status"),
		remoteCmd(client, "clear", "Remove finished jobs", cobra.NoArgs, "job", "clear"),
	)
	return jobs
}
