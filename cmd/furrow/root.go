package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/furrow"
)

var (
	verbose     bool
	adapter     string
	uri         string
	credentials string
	project     string
	database    string
	format      string
	versioned   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "furrow",
	Short: "Seed document stores with fixed datasets",
	Long: `furrow writes fixed lists of records into named collections of a document store.
Every record replaces the document at its ID, so seeding twice is safe.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// storeOptions builds the options shared by every command that opens a store.
func storeOptions() []furrow.Option {
	opts := []furrow.Option{
		furrow.WithAdapter(adapter),
		furrow.WithLogger(slog.Default()),
		furrow.WithVersioning(versioned),
	}
	if credentials != "" {
		opts = append(opts, furrow.WithCredentialsFile(credentials))
	}
	if project != "" {
		opts = append(opts, furrow.WithProjectID(project))
	}
	if database != "" {
		opts = append(opts, furrow.WithDatabase(database))
	}
	if format != "" {
		opts = append(opts, furrow.WithFormat(format))
	}
	return opts
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVarP(&adapter, "adapter", "a", "firestore", "Store adapter: firestore, mongo, postgres, fs, memory")
	flags.StringVar(&uri, "uri", "", "Store location: project ID, connection string or directory")
	flags.StringVar(&credentials, "credentials", "serviceAccountKey.json", "Service account key file (firestore)")
	flags.StringVar(&project, "project", "", "Firebase project ID when --uri is empty (firestore)")
	flags.StringVar(&database, "database", "", "Firestore database ID or MongoDB database name")
	flags.StringVar(&format, "format", "", "Document file format, .json or .yaml (fs)")
	flags.BoolVar(&versioned, "versioned", false, "Commit every write to git (fs)")
}
