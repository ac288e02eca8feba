package main

import (
	"os"

	"github.com/fatih/color"

	"yashubustudio/densityfit/scoring"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = color.New(color.FgRed, color.Bold).Fprintln(os.Stderr, scoring.Report(err))
		os.Exit(1)
	}
}
