package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"segstore/internal/partition"
)

func newPartitionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "partition",
		Short: "Inspect partition routing (derivation and shard hashing)",
	}
	cmd.AddCommand(
		newPartitionDeriveCmd(),
		newPartitionHashBucketCmd(),
	)
	return cmd
}

func newPartitionDeriveCmd() *cobra.Command {
	var defaultKey string
	cmd := &cobra.Command{
		Use:   "derive [value]",
		Short: "Derive the partition identifier for a partition-column value (omit value for null)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value any
			if len(args) == 1 {
				value = args[0]
			}
			key, err := partition.Derive(value, defaultKey)
			if err != nil {
				return fmt.Errorf("derive partition: %w", err)
			}
			fmt.Println(key)
			return nil
		},
	}
	cmd.Flags().StringVar(&defaultKey, "default", "", "fallback partition key used when value is null")
	return cmd
}

func newPartitionHashBucketCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-bucket <partition-key> <num-buckets>",
		Short: "Map a partition key to its shard bucket",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			numBuckets, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("num-buckets must be an integer: %w", err)
			}
			fmt.Println(partition.HashBucket(args[0], numBuckets))
			return nil
		},
	}
}
