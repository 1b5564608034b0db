package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/spf13/cobra"
)

// readersCmd lists the reader ids accepted in decoder.readers.
var readersCmd = &cobra.Command{
	Use:   "readers",
	Short: "List supported barcode readers",
	Long: `List the reader ids accepted in the decoder.readers configuration,
the symbology each one decodes and the configured default reader list.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "READER\tFORMAT\tSUPPLEMENTS")
		for _, id := range barcode.SupportedReaders() {
			f, _ := barcode.ParseReader(id)
			supplements := "-"
			if _, err := barcode.NewReader(id, barcode.SupplementReaders()); err == nil {
				supplements = strings.Join(barcode.SupplementReaders(), ", ")
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", id, f, supplements)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "\nConfigured readers (in decode order):")
		for i, r := range cfg.Scanner.Decoder.Readers {
			entry := r.Format
			if len(r.Supplements) > 0 {
				entry += " + " + strings.Join(r.Supplements, ", ")
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %d. %s\n", i+1, entry)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(readersCmd)
}
