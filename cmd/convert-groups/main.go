package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sigmine-dashboard/internal/groups"
	"sigmine-dashboard/internal/logger"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "convert-groups <grupos.xlsx>",
		Short: "Convert the company/group spreadsheet to grupos.json",
		Long: `Reads the first sheet of an XLSX file with columns (empresa, grupo),
header row first, and writes the mapping as an indented JSON object.
Duplicate company names are rejected.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return convert(args[0], out)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "grupos.json", "output file, - for stdout")
	return cmd
}

func convert(in, out string) error {
	log := logger.New().Component("convert-groups")

	table, err := groups.LoadXLSX(in)
	if err != nil {
		return fmt.Errorf("load %s: %w", in, err)
	}

	var buf bytes.Buffer
	if err := table.WriteJSON(&buf); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if out == "-" {
		_, err = os.Stdout.Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	log.WithField("companies", table.Len()).
		WithField("groups", len(table.Groups())).
		WithField("output", out).
		Info("groups converted")
	return nil
}
