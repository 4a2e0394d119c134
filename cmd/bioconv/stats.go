package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scttfrdmn/bioconv-go/pkg/format"
	"github.com/scttfrdmn/bioconv-go/pkg/value"
)

var statsGz bool

var statsCmd = &cobra.Command{
	Use:   "stats <format> <input>",
	Short: "Show header keys and row counts",
	Long: `Decode a file and summarize it: the header's top-level keys with the
size of each, and the number of rows in every table.

Pass --gz for bgzipped text and for ordinary BGZF .bcf files.

Example:
  bioconv stats vcf --gz calls.vcf.gz
  bioconv stats bcf --gz calls.bcf`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := decodeOne(cmd, args[0], args[1], statsGz, format.DecodeOptions{})
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "===========================================")
		fmt.Fprintf(w, "%s: %s\n", doc.Format, args[1])
		fmt.Fprintln(w, "===========================================")
		fmt.Fprintln(w)

		fmt.Fprintln(w, "Header:")
		if doc.Header.Kind != value.KindRecord {
			fmt.Fprintf(w, "  %s\n", doc.Header.Text())
		} else if doc.Header.Record.Len() == 0 {
			fmt.Fprintln(w, "  (empty)")
		} else {
			for i, key := range doc.Header.Record.Cols {
				fmt.Fprintf(w, "  %s: %s\n", key, describe(doc.Header.Record.Vals[i]))
			}
		}
		fmt.Fprintln(w)

		fmt.Fprintln(w, "Tables:")
		for _, t := range doc.Tables {
			fmt.Fprintf(w, "  %s: %d rows (%d columns)\n", t.Name, len(doc.Rows(t.Name)), len(t.Schema))
		}
		fmt.Fprintf(w, "  Total: %d rows\n", doc.Count())
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsGz, "gz", false,
		"Input is BGZF block-compressed (required for standard .bcf files)")
}

// describe summarizes a header value without printing all of it.
func describe(v value.Value) string {
	switch v.Kind {
	case value.KindRecord:
		return fmt.Sprintf("%d entries", v.Record.Len())
	case value.KindList:
		return fmt.Sprintf("%d items", len(v.List))
	default:
		return v.Text()
	}
}
