package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/fileimport/internal/fileimport"
)

func newPreviewCmd(a *app) *cobra.Command {
	var maxLines int
	var policy string

	cmd := &cobra.Command{
		Use:   "preview FILE",
		Short: "Print the preview shown before an import",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := a.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer done()

			opts := svc.DefaultPreviewOptions()
			if opts.ReadOptions, err = a.readOptions(cmd, opts.ReadOptions); err != nil {
				return err
			}
			if cmd.Flags().Changed("max-lines") {
				opts.MaxLines = maxLines
			}
			if cmd.Flags().Changed("policy") {
				if opts.Policy, err = fileimport.ParsePreviewPolicy(policy); err != nil {
					return err
				}
			}

			f, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			result, err := svc.PreviewFile(cmd.Context(), filepath.Base(args[0]), f, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, result.Preview)
			fmt.Fprintf(cmd.ErrOrStderr(), "%d logical lines, %d bytes\n", result.LogicalLines, result.Bytes)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxLines, "max-lines", fileimport.DefaultPreviewLines, "logical lines to show (default IMPORT_PREVIEW_MAX_LINES)")
	cmd.Flags().StringVar(&policy, "policy", string(fileimport.PreviewCap), "cap or legacy (default IMPORT_PREVIEW_POLICY)")
	return cmd
}
