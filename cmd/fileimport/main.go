// Command fileimport previews import files and runs flat-rate imports
// from the command line.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/JonMunkholm/fileimport/internal/core"
)

func main() {
	cmd := newRootCmd(newApp())
	if err := cmd.Execute(); err != nil {
		reportError(cmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}

// reportError prints err followed by the operator hint when one is known.
func reportError(w io.Writer, err error) {
	fmt.Fprintln(w, "Error:", err)
	if core.IsUserFacing(err) {
		fmt.Fprintln(w, core.FormatUserError(err))
	}
}
