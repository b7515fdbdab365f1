package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/furrow"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List the built-in datasets",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		batches, err := furrow.Load(nil, "")
		if err != nil {
			fatal("Error loading datasets", err)
		}
		for _, b := range batches {
			fmt.Printf("%-14s %-18s %d records\n", b.Name, b.Collection, len(b.Entries))
		}
	},
}

func init() {
	rootCmd.AddCommand(datasetsCmd)
}
