package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sheet-qa/internal/table"
)

var inspectCmd = &cobra.Command{
	Use:          "inspect <file.xlsx>",
	Short:        "Print the table parsed from the first sheet",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		if err := runInspect(cmd.OutOrStdout(), args[0], limit); err != nil {
			GetLogger().Error("inspect failed", "file", args[0], "error", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().Int("limit", 20, "maximum rows to print (0 prints all)")
}

func runInspect(out io.Writer, path string, limit int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, err := table.ParseXLSX(f)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Columns(), "\t"))
	for i, row := range t.Rows() {
		if limit > 0 && i >= limit {
			break
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d rows\n", t.Len())
	return nil
}
