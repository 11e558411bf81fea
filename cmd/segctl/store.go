package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newStoreCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage the segment store's lifecycle",
	}
	cmd.AddCommand(
		newStoreInitCmd(logger),
		newStoreClearCmd(logger),
	)
	return cmd
}

func newStoreInitCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Prepare the segment store backend for use (e.g. run migrations)",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, closeFn, err := openSegmentStore(cmd, logger)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()

			if err := st.Initialize(context.Background()); err != nil {
				return fmt.Errorf("initialize store: %w", err)
			}
			fmt.Println("store initialized")
			return nil
		},
	}
}

func newStoreClearCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every partition, segment, and chunk from the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, closeFn, err := openSegmentStore(cmd, logger)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()

			if err := st.ClearAll(context.Background()); err != nil {
				return fmt.Errorf("clear store: %w", err)
			}
			fmt.Println("store cleared")
			return nil
		},
	}
}
