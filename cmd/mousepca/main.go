package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// exit codes for batch outcomes
const (
	exitOK      = 0
	exitFatal   = 1
	exitPartial = 3
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, errPartial) {
			os.Exit(exitPartial)
		}
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitFatal)
	}
	os.Exit(exitOK)
}
