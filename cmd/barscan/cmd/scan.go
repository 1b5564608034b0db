package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/engine"
	"github.com/MeKo-Tech/barscan/internal/scanner"
	"github.com/MeKo-Tech/barscan/internal/source"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	outputFormatJSON = "json"
	outputFormatText = "text"
)

// scanCmd represents the scan command.
var scanCmd = &cobra.Command{
	Use:   "scan [paths...]",
	Short: "Decode barcodes in images, directories and PDFs",
	Long: `Decode barcodes in one or more image files, directories or PDF documents.

Every input becomes a frame of the scanner's input stream; PDF pages are
expanded into their embedded images. Frames are decoded by the configured
readers in list order.

Supported formats: JPEG, PNG, BMP, GIF, TIFF, WebP, PDF

Examples:
  barscan scan label.png
  barscan scan ./photos --recursive --include '*.jpg' --format json
  barscan scan invoice.pdf --pages 1-2
  barscan scan box.jpg --readers ean_reader+ean_5_reader+ean_2_reader,code_128_reader`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("no input files provided")
		}

		cfg, err := GetConfig()
		if err != nil {
			return err
		}

		files, err := source.Open(args, cfg.ToDiscoverOptions(), cfg.Input.PDFPages)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := cfg.ToScannerOptions(files)
		results, err := runScan(ctx, engine.New(), opts)
		if err != nil {
			return err
		}

		report := newScanReport(results, files.Skipped())
		var rendered string
		switch cfg.Output.Format {
		case outputFormatJSON:
			b, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal results: %w", err)
			}
			rendered = string(b) + "\n"
		default:
			rendered = report.text()
		}

		if cfg.Output.File != "" {
			if err := os.WriteFile(cfg.Output.File, []byte(rendered), 0o600); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Results written to %s\n", cfg.Output.File)
			return err
		}
		_, err = io.WriteString(cmd.OutOrStdout(), rendered)
		return err
	},
}

// runScan drives eng through a scanner adapter until the input stream is
// exhausted or ctx ends, and returns every processed frame in order.
func runScan(ctx context.Context, eng *engine.Engine, opts scanner.Options) ([]scanner.Result, error) {
	var results []scanner.Result
	onProcessed := func(r scanner.Result) {
		results = append(results, r)
	}
	onDetected := func(r scanner.Result) {
		for _, c := range r.Codes {
			slog.Debug("Barcode detected", "source", r.Source, "format", c.FormatName, "code", c.Text)
		}
	}

	adapter, initDone, err := scanner.Open(ctx, eng, &opts, onDetected, onProcessed)
	if err != nil {
		return nil, err
	}
	if err := <-initDone; err != nil {
		return nil, err
	}

	select {
	case <-eng.Done():
	case <-ctx.Done():
		slog.Info("Scan interrupted")
	}
	// Stop waits for the loop, so results is no longer written to afterwards.
	if err := adapter.Stop(); err != nil {
		return nil, err
	}
	if err := eng.Err(); err != nil {
		return results, fmt.Errorf("input stream failed: %w", err)
	}
	return results, nil
}

type frameReport struct {
	Frame      uint64           `json:"frame"`
	Source     string           `json:"source"`
	Codes      []barcode.Result `json:"codes"`
	DurationMs float64          `json:"duration_ms"`
	Error      string           `json:"error,omitempty"`
}

type scanSummary struct {
	Frames   int `json:"frames"`
	Detected int `json:"detected"`
	Codes    int `json:"codes"`
	Skipped  int `json:"skipped"`
}

type scanReport struct {
	Frames  []frameReport `json:"frames"`
	Skipped []string      `json:"skipped,omitempty"`
	Summary scanSummary   `json:"summary"`
}

func newScanReport(results []scanner.Result, skipped []string) scanReport {
	report := scanReport{Frames: make([]frameReport, 0, len(results)), Skipped: skipped}
	for _, r := range results {
		fr := frameReport{
			Frame:      r.FrameID,
			Source:     r.Source,
			Codes:      r.Codes,
			DurationMs: float64(r.Duration.Microseconds()) / 1000,
		}
		if fr.Codes == nil {
			fr.Codes = []barcode.Result{}
		}
		if r.Err != nil {
			fr.Error = r.Err.Error()
		}
		report.Frames = append(report.Frames, fr)

		if r.Detected() {
			report.Summary.Detected++
		}
		report.Summary.Codes += len(r.Codes)
	}
	report.Summary.Frames = len(results)
	report.Summary.Skipped = len(skipped)
	return report
}

func (r scanReport) text() string {
	var sb strings.Builder
	for _, f := range r.Frames {
		switch {
		case f.Error != "":
			fmt.Fprintf(&sb, "%s: error: %s\n", f.Source, f.Error)
		case len(f.Codes) == 0:
			fmt.Fprintf(&sb, "%s: no barcode found\n", f.Source)
		default:
			for _, c := range f.Codes {
				if c.Supplement != "" {
					fmt.Fprintf(&sb, "%s: %s %s (+%s)\n", f.Source, c.FormatName, c.Text, c.Supplement)
				} else {
					fmt.Fprintf(&sb, "%s: %s %s\n", f.Source, c.FormatName, c.Text)
				}
			}
		}
	}
	for _, s := range r.Skipped {
		fmt.Fprintf(&sb, "%s: skipped\n", s)
	}
	fmt.Fprintf(&sb, "%d frame(s), %d with barcodes, %d code(s)\n",
		r.Summary.Frames, r.Summary.Detected, r.Summary.Codes)
	return sb.String()
}

func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", outputFormatText, "output format (text, json)")
	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")

	cmd.Flags().String("readers", "",
		"comma-separated reader ids, supplements joined with '+' (e.g. ean_reader+ean_5_reader,code_128_reader)")
	cmd.Flags().Bool("multiple", false, "report every code in a frame instead of the first")
	cmd.Flags().IntP("workers", "w", scanner.DefaultNumOfWorkers, "decode workers (0 decodes on the capture loop)")
	cmd.Flags().Int("frequency", scanner.DefaultFrequency, "maximum frames pulled per second")
	cmd.Flags().String("patch-size", scanner.PatchSizeMedium,
		"locator patch size: "+strings.Join(scanner.PatchSizes, ", "))
	cmd.Flags().Bool("half-sample", true, "try a half-resolution decode before full resolution")

	cmd.Flags().BoolP("recursive", "r", false, "descend into directories")
	cmd.Flags().StringSlice("include", nil, "only scan files matching these glob patterns")
	cmd.Flags().StringSlice("exclude", nil, "skip files matching these glob patterns")
	cmd.Flags().String("pages", "", "PDF page range, e.g. 1-3,5")
}

// bindScanFlags binds all flags to viper configuration keys.
func bindScanFlags(cmd *cobra.Command) {
	flagBindings := []struct {
		key  string
		flag string
	}{
		{"output.format", "format"},
		{"output.file", "output"},
		{"scanner.decoder.readers", "readers"},
		{"scanner.decoder.multiple", "multiple"},
		{"scanner.num_of_workers", "workers"},
		{"scanner.frequency", "frequency"},
		{"scanner.locator.patch_size", "patch-size"},
		{"scanner.locator.half_sample", "half-sample"},
		{"input.recursive", "recursive"},
		{"input.include", "include"},
		{"input.exclude", "exclude"},
		{"input.pdf_pages", "pages"},
	}

	for _, binding := range flagBindings {
		if err := viper.BindPFlag(binding.key, cmd.Flags().Lookup(binding.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", binding.flag, err))
		}
	}
}

func init() {
	rootCmd.AddCommand(scanCmd)

	addScanFlags(scanCmd)
	bindScanFlags(scanCmd)
}
