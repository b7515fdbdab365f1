package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aretw0/furrow"
)

var seedGlob string

var seedCmd = &cobra.Command{
	Use:   "seed [dataset...]",
	Short: "Write datasets to the store",
	Long: `Write each dataset to the store, overwriting documents with the same ID.
A dataset is a built-in name (see 'furrow datasets'), a YAML file, or a directory
whose files matching --glob are loaded. Without arguments every built-in dataset is seeded.

The run stops at the first failed write. Records written before it are kept.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		batches, err := furrow.Load(args, seedGlob)
		if err != nil {
			fatal("Error loading datasets", err)
		}

		store, err := furrow.Open(ctx, uri, storeOptions()...)
		if err != nil {
			fatal("Error opening store", err)
		}
		defer store.Close()

		for _, b := range batches {
			report, err := furrow.Seed(ctx, store, []furrow.Batch{b}, furrow.WithLogger(slog.Default()))
			if err != nil {
				store.Close()
				fatal("Error seeding "+b.Name, err)
			}
			fmt.Printf("%s uploaded successfully. (%d records)\n", b.Collection, report.Total())
		}
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVar(&seedGlob, "glob", "", "Pattern selecting dataset files inside directories (default \"**/*.{yaml,yml}\")")
}
