package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scttfrdmn/bioconv-go/pkg/format"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "bioconv",
	Short: "bioconv - bioinformatics formats as structured data",
	Long: `bioconv decodes bioinformatics file formats into a uniform
{header, tables} document and encodes records back to FASTA and FASTQ.

Supported formats: fasta, fastq, sam, bam, cram, vcf, bcf, gff, gfa, bed.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Log decoding progress to stderr")

	rootCmd.AddCommand(fromCmd)
	rootCmd.AddCommand(toCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}

// newLogger returns a development logger with --verbose and a no-op one
// otherwise.
func newLogger() (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

func newPipeline(logger *zap.Logger) *format.Pipeline {
	return format.NewPipeline(format.WithLogger(logger))
}
