package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aretw0/furrow"
	"github.com/aretw0/furrow/pkg/adapters/lifecycle"
	"github.com/aretw0/furrow/pkg/core"
)

var (
	watchGlob        string
	watchCollections []string
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Re-seed datasets in a directory whenever they change",
	Long: `Seed every dataset file under the directory, then re-seed each file when it is
created or written. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		store, err := furrow.Open(ctx, uri, storeOptions()...)
		if err != nil {
			fatal("Error opening store", err)
		}
		defer store.Close()

		events := make(chan core.Event)
		// Failures are already logged by the seeding loop.
		source := lifecycle.NewSource(events,
			lifecycle.WithCollections(watchCollections...),
			lifecycle.WithoutFailures(),
		)
		if err := source.Start(ctx); err != nil {
			store.Close()
			fatal("Error starting event stream", err)
		}
		go func() {
			for e := range source.Events() {
				fmt.Println(e.String())
			}
		}()

		err = furrow.Watch(ctx, store, args[0], watchGlob,
			furrow.WithLogger(slog.Default()),
			furrow.WithEvents(events),
		)
		if err != nil {
			store.Close()
			fatal("Error watching datasets", err)
		}

		state := source.State().(lifecycle.SourceState)
		for _, name := range source.Collections() {
			t := state.Collections[name]
			fmt.Printf("%s: %d written, %d failed\n", name, t.Written, t.Failed)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringSliceVar(&watchCollections, "collection", nil, "Only print writes to these collections")
	watchCmd.Flags().StringVar(&watchGlob, "glob", "", "Pattern selecting dataset files (default \"**/*.{yaml,yml}\")")
}
