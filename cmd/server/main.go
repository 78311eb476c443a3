// Package main implements the entry point for the Scry planner server,
// which generates study plans and quizzes with an LLM and processes the
// resulting background jobs.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
