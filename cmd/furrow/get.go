package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/furrow"
)

var getCmd = &cobra.Command{
	Use:   "get [collection] [id]",
	Short: "Print a stored document as JSON",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		store, err := furrow.Open(ctx, uri, storeOptions()...)
		if err != nil {
			fatal("Error opening store", err)
		}
		defer store.Close()

		rec, err := store.Get(ctx, args[0], args[1])
		if err != nil {
			store.Close()
			fatal("Error reading document", err)
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(rec); err != nil {
			store.Close()
			fatal("Error encoding JSON", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
