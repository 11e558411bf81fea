package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"segstore/internal/schema"

	"github.com/spf13/cobra"
)

var columnTypeNames = map[string]schema.ColumnType{
	"int":    schema.Int,
	"long":   schema.Long,
	"double": schema.Double,
	"string": schema.String,
	"bitmap": schema.Bitmap,
}

func parseColumnType(name string) (schema.ColumnType, error) {
	ct, ok := columnTypeNames[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unknown column type %q (want one of int, long, double, string, bitmap)", name)
	}
	return ct, nil
}

func columnTypeName(ct schema.ColumnType) string {
	for name, t := range columnTypeNames {
		if t == ct {
			return name
		}
	}
	return "unknown"
}

func newSchemaCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage dataset columns and view effective schemas",
	}
	cmd.AddCommand(
		newSchemaInsertColumnCmd(logger),
		newSchemaGetCmd(logger),
	)
	return cmd
}

func newSchemaInsertColumnCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insert-column <dataset> <name> <version> <type>",
		Short: "Add or change a column definition",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			deleted, _ := cmd.Flags().GetBool("deleted")

			version, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[2], err)
			}
			ct, err := parseColumnType(args[3])
			if err != nil {
				return err
			}

			md, closeFn, err := openMetadataStore(cmd, logger)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()

			c := schema.NewColumn(args[1], args[0], version, ct)
			c.IsDeleted = deleted

			if err := md.InsertColumn(context.Background(), c); err != nil {
				return fmt.Errorf("insert column: %w", err)
			}
			fmt.Printf("column %q v%d inserted into dataset %q\n", args[1], version, args[0])
			return nil
		},
	}
	cmd.Flags().Bool("deleted", false, "tombstone an existing column instead of defining one")
	return cmd
}

func newSchemaGetCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <dataset>",
		Short: "Show the effective schema for a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, _ := cmd.Flags().GetInt("version")

			md, closeFn, err := openMetadataStore(cmd, logger)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()

			s, err := md.GetSchema(context.Background(), args[0], version)
			if err != nil {
				return fmt.Errorf("get schema: %w", err)
			}

			p := newPrinter(outputFormat(cmd))
			columns := s.Sorted()
			if outputFormat(cmd) == "json" {
				return p.json(columns)
			}
			var rows [][]string
			for _, c := range columns {
				rows = append(rows, []string{c.Name, columnTypeName(c.ColumnType), strconv.Itoa(c.Version), c.Serializer})
			}
			p.table([]string{"NAME", "TYPE", "VERSION", "SERIALIZER"}, rows)
			return nil
		},
	}
	cmd.Flags().Int("version", 1<<30, "effective schema version horizon (default: latest)")
	return cmd
}
