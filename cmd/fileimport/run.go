package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/fileimport/internal/flatrate"
)

func newRunCmd(a *app) *cobra.Command {
	var clientID int64
	var deleteOld bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Import staged flat-rate terms as contracts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, done, err := a.service(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer done()

			params := flatrate.Params{
				ClientID:          a.cfg.Import.ClientID,
				DeleteOldImported: deleteOld,
			}
			if cmd.Flags().Changed("client") {
				params.ClientID = clientID
			}

			result, err := svc.RunFlatrateImport(cmd.Context(), params)
			if err != nil {
				return err
			}

			printRunResult(cmd, result)
			return nil
		},
	}

	cmd.Flags().Int64Var(&clientID, "client", 0, "client (ad_client_id) to import for (default IMPORT_CLIENT_ID)")
	cmd.Flags().BoolVar(&deleteOld, "delete-old", false, "delete rows imported by earlier runs first")
	return cmd
}

func printRunResult(cmd *cobra.Command, result *flatrate.Result) {
	out := cmd.OutOrStdout()

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Run", "Client", "Deleted", "Validated", "Flagged", "Imported", "Failed", "Duration"})
	table.SetBorder(false)
	table.Append([]string{
		result.RunID,
		strconv.FormatInt(result.ClientID, 10),
		strconv.FormatInt(result.Deleted, 10),
		strconv.FormatInt(result.Validated, 10),
		strconv.FormatInt(result.Flagged, 10),
		strconv.Itoa(result.Imported),
		strconv.Itoa(result.Failed),
		result.Duration.String(),
	})
	table.Render()

	if len(result.Errors) == 0 {
		return
	}

	fmt.Fprintln(out)
	errTable := tablewriter.NewWriter(out)
	errTable.SetHeader([]string{"Import row", "Reason"})
	errTable.SetBorder(false)
	errTable.SetAutoWrapText(false)
	for _, e := range result.Errors {
		errTable.Append([]string{strconv.FormatInt(e.ImportID, 10), e.Reason})
	}
	errTable.Render()
}
