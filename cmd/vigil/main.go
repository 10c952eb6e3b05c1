package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"vigil/internal/vigilerr"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, errDriftDetected) {
			os.Exit(vigilerr.ExitDrift)
		}
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(vigilerr.ExitCode(err))
	}
}
