package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newLinesCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "lines FILE",
		Short: "List the logical lines of a file",
		Long: `List the logical lines of a file with the number of physical lines each
one spans. Embedded line breaks are shown as \n.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := a.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer done()

			opts, err := a.readOptions(cmd, svc.DefaultReadOptions())
			if err != nil {
				return err
			}

			f, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			lines, _, err := svc.ReadLines(cmd.Context(), f, opts)
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			shown := lines
			if limit > 0 && len(shown) > limit {
				shown = shown[:limit]
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"#", "Physical", "Text"})
			table.SetBorder(false)
			table.SetCenterSeparator("")
			table.SetAutoWrapText(false)
			table.SetColumnAlignment([]int{tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT})

			for i, line := range shown {
				table.Append([]string{
					strconv.Itoa(i + 1),
					strconv.Itoa(strings.Count(line, "\n") + 1),
					strings.ReplaceAll(line, "\n", `\n`),
				})
			}
			table.SetFooter([]string{"", "", fmt.Sprintf("%d logical lines", len(lines))})
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "show at most this many lines (0 shows all)")
	return cmd
}
