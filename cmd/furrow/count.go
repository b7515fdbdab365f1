package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/furrow"
)

var countCmd = &cobra.Command{
	Use:   "count [collection]",
	Short: "Print the number of documents in a collection",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		store, err := furrow.Open(ctx, uri, storeOptions()...)
		if err != nil {
			fatal("Error opening store", err)
		}
		defer store.Close()

		n, err := store.Count(ctx, args[0])
		if err != nil {
			store.Close()
			fatal("Error counting documents", err)
		}
		fmt.Println(n)
	},
}

func init() {
	rootCmd.AddCommand(countCmd)
}
