package main

import (
	"fmt"
	"os"

	"github.com/covtrack/covtrack/cmd/covtrack/app"
)

func main() {
	if err := app.NewCovtrackCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
