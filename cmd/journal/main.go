// Command journal runs the trade journal API and its companion CLI.
package main

import (
	"context"
	"os"

	_ "time/tzdata"

	"github.com/fatih/color"

	"trade-journal/internal/cli"
)

func main() {
	root := cli.NewRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
