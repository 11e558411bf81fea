package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newDatasetCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Manage datasets",
	}
	cmd.AddCommand(
		newDatasetCreateCmd(logger),
		newDatasetGetCmd(logger),
		newDatasetRmCmd(logger),
	)
	return cmd
}

func newDatasetCreateCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, closeFn, err := openMetadataStore(cmd, logger)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()

			if err := md.NewDataset(context.Background(), args[0]); err != nil {
				return fmt.Errorf("create dataset %q: %w", args[0], err)
			}
			fmt.Printf("dataset %q created\n", args[0])
			return nil
		},
	}
}

func newDatasetGetCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Show a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, closeFn, err := openMetadataStore(cmd, logger)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()

			ds, err := md.GetDataset(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("get dataset %q: %w", args[0], err)
			}

			p := newPrinter(outputFormat(cmd))
			if outputFormat(cmd) == "json" {
				return p.json(ds)
			}
			p.kv([][2]string{{"Name", ds.Name}})
			return nil
		},
	}
}

func newDatasetRmCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a dataset and all its column versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, closeFn, err := openMetadataStore(cmd, logger)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()

			if err := md.DeleteDataset(context.Background(), args[0]); err != nil {
				return fmt.Errorf("delete dataset %q: %w", args[0], err)
			}
			fmt.Printf("dataset %q deleted\n", args[0])
			return nil
		},
	}
}
