package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scttfrdmn/bioconv-go/pkg/format"
	"github.com/scttfrdmn/bioconv-go/pkg/output"
	"github.com/scttfrdmn/bioconv-go/pkg/source"
	"github.com/scttfrdmn/bioconv-go/pkg/storage"
)

var (
	viewTable string
	viewLimit int
	viewGz    bool
	viewOpts  format.DecodeOptions
)

var viewCmd = &cobra.Command{
	Use:   "view <format> <input>",
	Short: "Show one table of a decoded file",
	Long: `Decode a file and print one of its tables.

Single-table formats use the "body" table. GFA has "segments", "links",
"containments" and "paths".

Example:
  bioconv view gfa graph.gfa --table links --limit 50`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := decodeOne(cmd, args[0], args[1], viewGz, viewOpts)
		if err != nil {
			return err
		}

		for _, t := range doc.Tables {
			if t.Name == viewTable {
				return output.Table(cmd.OutOrStdout(), t.Schema, doc.Rows(t.Name), viewLimit)
			}
		}
		names := make([]string, len(doc.Tables))
		for i, t := range doc.Tables {
			names[i] = t.Name
		}
		return fmt.Errorf("%s has no table %q (tables: %s)", doc.Format, viewTable, strings.Join(names, ", "))
	},
}

func init() {
	viewCmd.Flags().StringVar(&viewTable, "table", format.BodyTable,
		"Table to show")
	viewCmd.Flags().IntVar(&viewLimit, "limit", 20,
		"Maximum rows to show (0 = all)")
	viewCmd.Flags().BoolVar(&viewGz, "gz", false,
		"Input is BGZF block-compressed (required for standard .bcf files)")
	viewCmd.Flags().BoolVarP(&viewOpts.Description, "description", "d", false,
		"Include the description column (FASTA, FASTQ)")
	viewCmd.Flags().BoolVarP(&viewOpts.QualityScores, "quality-scores", "q", false,
		"Include the quality_scores column (FASTQ)")
}

// decodeOne loads and decodes a single input for the inspection commands.
func decodeOne(cmd *cobra.Command, name, input string, gz bool, opts format.DecodeOptions) (*format.Document, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}
	defer logger.Sync()

	data, err := storage.Load(cmd.Context(), input)
	if err != nil {
		return nil, err
	}
	mode := source.Raw
	if gz {
		mode = source.BlockCompressed
	}
	doc, err := newPipeline(logger).Decode(name, data, mode, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", input, err)
	}
	return doc, nil
}
