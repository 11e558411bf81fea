// Command segctl is a direct, in-process administration and debugging
// tool for a segment store: manage dataset schemas, flush rows into a
// segment, and stream them back out. It talks to the store and metadata
// backends directly, the way a local client would before any network
// service sits in front of them.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"segstore/internal/home"
	"segstore/internal/logging"
	"segstore/internal/metadata"
	metadatafile "segstore/internal/metadata/file"
	metadatamemory "segstore/internal/metadata/memory"
	metadatasqlite "segstore/internal/metadata/sqlite"
	"segstore/internal/store"
	storememory "segstore/internal/store/memory"
	storesqlite "segstore/internal/store/sqlite"

	"github.com/spf13/cobra"
)

func main() {
	baseHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	filterHandler := logging.NewComponentFilterHandler(baseHandler, slog.LevelWarn)
	logger := slog.New(filterHandler)

	rootCmd := &cobra.Command{
		Use:   "segctl",
		Short: "Administer and query a segment store",
	}
	rootCmd.PersistentFlags().String("home", "", "home directory for file-backed stores (default: platform config dir)")
	rootCmd.PersistentFlags().String("metadata", "sqlite", "metadata backend: memory, file, or sqlite")
	rootCmd.PersistentFlags().String("store", "sqlite", "segment store backend: memory or sqlite")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "output format: table or json")

	rootCmd.AddCommand(
		newDatasetCmd(logger),
		newSchemaCmd(logger),
		newSegmentCmd(logger),
		newStoreCmd(logger),
		newPartitionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveHome(cmd *cobra.Command) (home.Dir, error) {
	flagValue, _ := cmd.Flags().GetString("home")
	if flagValue != "" {
		return home.New(flagValue), nil
	}
	return home.Default()
}

func openMetadataStore(cmd *cobra.Command, logger *slog.Logger) (metadata.Store, func() error, error) {
	backend, _ := cmd.Flags().GetString("metadata")
	noop := func() error { return nil }

	switch backend {
	case "memory":
		return metadatamemory.New(logger), noop, nil
	case "file":
		hd, err := resolveHome(cmd)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve home directory: %w", err)
		}
		if err := hd.EnsureExists(); err != nil {
			return nil, nil, err
		}
		return metadatafile.New(hd.MetadataPath("file"), logger), noop, nil
	case "sqlite":
		hd, err := resolveHome(cmd)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve home directory: %w", err)
		}
		if err := hd.EnsureExists(); err != nil {
			return nil, nil, err
		}
		st, err := metadatasqlite.Open(hd.MetadataPath("sqlite"), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open metadata store: %w", err)
		}
		return st, st.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown metadata backend %q", backend)
	}
}

func openSegmentStore(cmd *cobra.Command, logger *slog.Logger) (store.Store, func() error, error) {
	backend, _ := cmd.Flags().GetString("store")
	noop := func() error { return nil }

	switch backend {
	case "memory":
		return storememory.New(storememory.Config{Logger: logger}), noop, nil
	case "sqlite":
		hd, err := resolveHome(cmd)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve home directory: %w", err)
		}
		if err := hd.EnsureExists(); err != nil {
			return nil, nil, err
		}
		st, err := storesqlite.Open(hd.StorePath(), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open segment store: %w", err)
		}
		return st, st.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown segment store backend %q", backend)
	}
}

func outputFormat(cmd *cobra.Command) string {
	f, _ := cmd.Flags().GetString("output")
	return f
}
