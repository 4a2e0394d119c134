package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scttfrdmn/bioconv-go/pkg/encode"
	"github.com/scttfrdmn/bioconv-go/pkg/storage"
)

var toOutput string

var toCmd = &cobra.Command{
	Use:   "to <fasta|fastq> [input.json]",
	Short: "Encode JSON records as FASTA or FASTQ",
	Long: `Encode records back to FASTA or FASTQ text.

The input is either a JSON list of records or a document produced by
"bioconv from", in which case its body table is used. Every record must
have the same columns. The last column (FASTA) or last two columns (FASTQ)
are the sequence and quality; earlier columns form the header line.

Examples:
  bioconv from fastq -d -q reads.fq | bioconv to fastq
  bioconv to fasta records.json -o out.fa`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		input := storage.Stdio
		if len(args) == 2 {
			input = args[1]
		}

		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()

		data, err := storage.Load(cmd.Context(), input)
		if err != nil {
			return err
		}
		records, err := encode.Records(name, data)
		if err != nil {
			return fmt.Errorf("failed to read records: %w", err)
		}
		out, err := newPipeline(logger).Encode(name, records)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", name, err)
		}
		if err := storage.Save(cmd.Context(), toOutput, out); err != nil {
			return err
		}
		if toOutput != storage.Stdio {
			fmt.Fprintf(os.Stderr, "Encoded %d records to %s\n", len(records), toOutput)
		}
		return nil
	},
}

func init() {
	toCmd.Flags().StringVarP(&toOutput, "output", "o", storage.Stdio,
		"Output path, s3://bucket/key or - for stdout")
}
