// Command trcli is an unofficial TrainerRoad data export client
package main

import (
	"fmt"
	"os"

	"trcli/internal/cli"
	perr "trcli/internal/platform/errors"
	"trcli/internal/platform/logger"
)

func main() {
	if err := cli.Execute(); err != nil {
		if e, ok := perr.As(err); ok {
			_, _ = fmt.Fprintf(os.Stderr, "error: %s\n", e.Message())
			logger.Get().Debug().Err(err).Msg("command failed")
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}
