package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newStageCmd(a *app) *cobra.Command {
	var clientID int64
	var delimiter string

	cmd := &cobra.Command{
		Use:   "stage FILE",
		Short: "Load a flat-rate term file into the staging table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := a.service(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer done()

			opts := svc.DefaultStageOptions()
			if opts.ReadOptions, err = a.readOptions(cmd, opts.ReadOptions); err != nil {
				return err
			}
			if cmd.Flags().Changed("client") {
				opts.ClientID = clientID
			}
			if cmd.Flags().Changed("delimiter") {
				if opts.Delimiter, err = singleRune("delimiter", delimiter); err != nil {
					return err
				}
			}

			f, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			result, err := svc.StageFlatrate(cmd.Context(), filepath.Base(args[0]), f, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s: %d rows, %d staged, %d failed\n",
				result.RunID, result.TotalRows, result.Staged, len(result.FailedRows))

			if len(result.FailedRows) > 0 {
				table := tablewriter.NewWriter(out)
				table.SetHeader([]string{"Line", "Reason", "Data"})
				table.SetBorder(false)
				table.SetAutoWrapText(false)
				for _, fr := range result.FailedRows {
					table.Append([]string{strconv.Itoa(fr.LineNumber), fr.Reason, strings.Join(fr.Data, ", ")})
				}
				table.Render()
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&clientID, "client", 0, "client (ad_client_id) to stage for (default IMPORT_CLIENT_ID)")
	cmd.Flags().StringVar(&delimiter, "delimiter", ",", "field delimiter (default IMPORT_DELIMITER)")
	return cmd
}
