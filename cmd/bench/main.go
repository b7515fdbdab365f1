package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/furrow"
)

func main() {
	count := flag.Int("count", 1000, "Number of records to write")
	adapter := flag.String("adapter", "fs", "Store adapter to benchmark (fs or memory)")
	versioned := flag.Bool("versioned", false, "Commit every write to git (fs)")
	keep := flag.Bool("keep", false, "Keep the benchmark store after running")
	flag.Parse()

	benchDir, err := os.MkdirTemp("", "furrow_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	created := time.Date(2025, 4, 10, 20, 15, 41, 0, time.UTC)
	entries := make([]furrow.Entry, *count)
	for i := range entries {
		entries[i] = furrow.Entry{
			ID: fmt.Sprint(i + 1),
			Record: furrow.Record{
				"name":       fmt.Sprintf("Department %d", i+1),
				"created_at": created,
				"likes":      i,
			},
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx := context.Background()

	store, err := furrow.Open(ctx, filepath.Join(benchDir, "store"),
		furrow.WithAdapter(*adapter),
		furrow.WithLogger(logger),
		furrow.WithVersioning(*versioned),
	)
	if err != nil {
		panic(err)
	}
	defer store.Close()

	w := furrow.NewWriter(store)

	// Run 1 creates every document.
	fmt.Printf("Writing %d records (Run 1 - Create)...\n", *count)
	start := time.Now()
	if _, err := w.WriteAll(ctx, "Bench Table", entries); err != nil {
		panic(err)
	}
	create := time.Since(start)

	// Run 2 overwrites the same IDs.
	fmt.Printf("Writing %d records (Run 2 - Overwrite)...\n", *count)
	start = time.Now()
	if _, err := w.WriteAll(ctx, "Bench Table", entries); err != nil {
		panic(err)
	}
	overwrite := time.Since(start)

	n, err := store.Count(ctx, "Bench Table")
	if err != nil {
		panic(err)
	}

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d records, adapter %s, stored %d):\n", *count, *adapter, n)
	fmt.Printf("  Create:    %v (%.0f rec/s)\n", create, float64(*count)/create.Seconds())
	fmt.Printf("  Overwrite: %v (%.0f rec/s)\n", overwrite, float64(*count)/overwrite.Seconds())
	fmt.Printf("--------------------------------------------------\n")
}
