package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scttfrdmn/bioconv-go/pkg/batch"
	"github.com/scttfrdmn/bioconv-go/pkg/output"
	"github.com/scttfrdmn/bioconv-go/pkg/source"
	"github.com/scttfrdmn/bioconv-go/pkg/storage"
)

var (
	fromGz          bool
	fromDescription bool
	fromQuality     bool
	fromOutput      string
	fromCompression string
	fromLevel       int
	fromWorkers     int
	fromMemory      string
	fromPretty      bool
	fromShowConfig  bool
)

var fromCmd = &cobra.Command{
	Use:   "from <format> [inputs...]",
	Short: "Decode files into a JSON document",
	Long: `Decode one or more files of the given format into JSON.

A single input produces one {header, tables} document. Several inputs
produce NDJSON, one {"path", "document"} object per line, in argument
order. Inputs are decoded concurrently but each document is decoded
start to finish by one worker.

Inputs may be local paths, - for stdin (the default) or s3://bucket/key.
The output may be a local path, - for stdout (the default) or an S3 URI.

Compression:
  --gz reads every input as BGZF (bgzip) block-compressed data.
  Ordinary .bcf files are BGZF and need --gz; without it BCF input
  must be uncompressed.
  BAM and CRAM carry their own framing and are always read raw.

Smart Defaults:
  Workers: Auto-detected from CPU count
  Memory budget: 25% of RAM (capped at available)

Examples:
  # FASTA with descriptions to stdout
  bioconv from fasta -d reads.fa

  # bgzipped VCF from S3 to a zstd-compressed file
  bioconv from vcf --gz s3://bucket/calls.vcf.gz -o calls.json.zst --compression zstd

  # BGZF-compressed BCF
  bioconv from bcf --gz calls.bcf

  # Many BAM files at once
  bioconv from bam *.bam --workers 8 -o alignments.ndjson

  # Show effective configuration
  bioconv from sam --show-config`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, inputs := args[0], args[1:]
		if len(inputs) == 0 {
			inputs = []string{storage.Stdio}
		}

		cfg := batch.NewConfig()
		if fromGz {
			cfg.Mode = source.BlockCompressed
		}
		cfg.Options.Description = fromDescription
		cfg.Options.QualityScores = fromQuality
		if fromWorkers > 0 {
			cfg.Workers = fromWorkers
		}
		if fromMemory != "" {
			size, err := batch.ParseSize(fromMemory)
			if err != nil {
				return fmt.Errorf("invalid memory budget: %w", err)
			}
			cfg.MemoryBudget = size
		}

		if fromShowConfig {
			cfg.ShowConfig(os.Stderr)
			return nil
		}

		algo, err := output.ParseCompression(fromCompression)
		if err != nil {
			return err
		}
		compressor, err := output.NewCompressor(algo, fromLevel)
		if err != nil {
			return err
		}
		defer compressor.Close()

		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()

		runner, err := batch.NewRunner(cfg, newPipeline(logger), storage.Load, logger)
		if err != nil {
			return err
		}
		results, err := runner.Run(cmd.Context(), name, inputs)
		if err != nil {
			return fmt.Errorf("failed to decode %s: %w", name, err)
		}

		var data []byte
		if len(results) == 1 {
			data, err = output.JSON(results[0].Document.Value(), fromPretty)
			if err != nil {
				return err
			}
		} else {
			var buf bytes.Buffer
			w := output.NewNDJSON(&buf)
			for _, res := range results {
				if err := w.Write(res.Location, res.Document.Value()); err != nil {
					return fmt.Errorf("failed to write %s: %w", res.Location, err)
				}
			}
			data = buf.Bytes()
		}

		if err := storage.Save(cmd.Context(), fromOutput, compressor.Compress(data)); err != nil {
			return err
		}

		if fromOutput != storage.Stdio {
			records := 0
			for _, res := range results {
				records += res.Document.Count()
			}
			fmt.Fprintf(os.Stderr, "Decoded %d records from %d input(s) to %s\n",
				records, len(results), fromOutput)
		}
		return nil
	},
}

func init() {
	fromCmd.Flags().BoolVar(&fromGz, "gz", false,
		"Inputs are BGZF block-compressed (required for standard .bcf files)")
	fromCmd.Flags().BoolVarP(&fromDescription, "description", "d", false,
		"Include the description column (FASTA, FASTQ)")
	fromCmd.Flags().BoolVarP(&fromQuality, "quality-scores", "q", false,
		"Include the quality_scores column (FASTQ)")
	fromCmd.Flags().StringVarP(&fromOutput, "output", "o", storage.Stdio,
		"Output path, s3://bucket/key or - for stdout")
	fromCmd.Flags().StringVar(&fromCompression, "compression", "none",
		"Output compression: none, zstd")
	fromCmd.Flags().IntVar(&fromLevel, "level", 2,
		"zstd level: 1 fastest, 2 default, 3 better compression")
	fromCmd.Flags().IntVar(&fromWorkers, "workers", 0,
		"Number of parallel workers (0 = auto-detect CPU count, 1 = sequential)")
	fromCmd.Flags().StringVar(&fromMemory, "memory", "",
		"Input bytes decoded at once (e.g., 512M, 4G) - default: 25% of RAM")
	fromCmd.Flags().BoolVar(&fromPretty, "pretty", false,
		"Indent single-document output")
	fromCmd.Flags().BoolVar(&fromShowConfig, "show-config", false,
		"Show effective configuration (workers, memory, etc.)")
}
