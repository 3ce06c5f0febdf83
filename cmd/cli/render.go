package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thereceipt/label-engine/internal/fonts"
	"github.com/thereceipt/label-engine/internal/renderer"
	"github.com/thereceipt/label-engine/pkg/labelformat"
)

type renderOptions struct {
	job     string
	name    string
	code    string
	price   string
	brand   string
	spec    string
	font    string
	out     string
	format  string
	presets string
	fill    bool
}

func newRenderCmd() *cobra.Command {
	opts := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a label sheet to an image without a server",
		Long: `Render a label sheet locally. Either describe one item with --name, --code
and --price, or pass a .label job file with --job.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.job, "job", "", ".label job file")
	f.StringVar(&opts.name, "name", "", "item name")
	f.StringVar(&opts.code, "code", "", "product code (any digits, completed to EAN-13)")
	f.StringVar(&opts.price, "price", "", "sale price, e.g. 12.50")
	f.StringVar(&opts.brand, "brand", "", "brand line")
	f.StringVar(&opts.spec, "spec", "", "label preset (default: the job's preset or standard)")
	f.StringVar(&opts.font, "font", "", "TrueType font file")
	f.StringVarP(&opts.out, "out", "o", "label.png", "output file, - for stdout")
	f.StringVar(&opts.format, "format", "", "png or bmp (default: from --out extension)")
	f.StringVar(&opts.presets, "presets", "", "YAML file with extra presets")
	f.BoolVar(&opts.fill, "fill", false, "repeat the item in every slot")
	return cmd
}

func runRender(cmd *cobra.Command, opts *renderOptions) error {
	if opts.presets != "" {
		if _, err := labelformat.LoadPresets(opts.presets); err != nil {
			return err
		}
	}

	job, err := opts.buildJob()
	if err != nil {
		return err
	}

	specName := job.Spec
	if opts.spec != "" {
		specName = opts.spec
	}
	spec, err := labelformat.LookupSpec(specName)
	if err != nil {
		return err
	}

	format, err := renderer.ParseFormat(opts.outputFormat())
	if err != nil {
		return err
	}

	face := fonts.Discover()
	if opts.font != "" {
		if face, err = fonts.Load(opts.font); err != nil {
			return err
		}
	}

	// Renderer warnings go to stderr so stdout can carry the image
	r := renderer.New(
		renderer.WithFont(face),
		renderer.WithLogger(log.New(cmd.ErrOrStderr(), "", 0)),
	)
	img := r.Compose(job.Items, spec)

	var w io.Writer = cmd.OutOrStdout()
	if opts.out != "-" {
		file, err := os.Create(opts.out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", opts.out, err)
		}
		defer file.Close()
		w = file
	}
	if err := img.Encode(w, format); err != nil {
		return err
	}

	if opts.out != "-" {
		fmt.Fprintln(cmd.ErrOrStderr(), successStyle.Render(fmt.Sprintf("✓ Wrote %s (%dx%d, %s)", opts.out, img.Width, img.Height, spec.Name)))
		for _, slot := range img.Slots {
			fmt.Fprintf(cmd.ErrOrStderr(), "  slot %d  %s  %s\n", slot.Index, slot.Code, mutedStyle.Render(slot.Tier.String()))
		}
	}
	return nil
}

func (o *renderOptions) buildJob() (*labelformat.Job, error) {
	if o.job != "" {
		job, err := labelformat.ParseFile(o.job)
		if err != nil {
			return nil, err
		}
		return job, nil
	}

	if o.name == "" {
		return nil, fmt.Errorf("either --job or --name is required")
	}
	var price int64
	if o.price != "" {
		p, err := labelformat.ParseAmount(o.price)
		if err != nil {
			return nil, fmt.Errorf("invalid price: %w", err)
		}
		price = p
	}

	item := labelformat.Item{Name: o.name, Code: o.code, SalePrice: price, Brand: o.brand}
	if err := item.Validate(); err != nil {
		return nil, err
	}

	job := &labelformat.Job{Version: "1.0", Spec: labelformat.DefaultSpecName, Items: []labelformat.Item{item}}
	if o.fill {
		spec, err := labelformat.LookupSpec(o.specOr(job.Spec))
		if err != nil {
			return nil, err
		}
		for len(job.Items) < spec.Slots {
			job.Items = append(job.Items, item)
		}
	}
	return job, nil
}

func (o *renderOptions) specOr(def string) string {
	if o.spec != "" {
		return o.spec
	}
	return def
}

func (o *renderOptions) outputFormat() string {
	if o.format != "" {
		return o.format
	}
	if strings.HasSuffix(strings.ToLower(o.out), ".bmp") {
		return "bmp"
	}
	return "png"
}
