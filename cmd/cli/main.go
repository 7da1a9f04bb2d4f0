package main

import (
	"fmt"
	"os"

	"github.com/de-tools/export-consolidator/pkg/runtime/terminal"
	"github.com/de-tools/export-consolidator/pkg/runtime/terminal/commands"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cli := terminal.NewCLI(terminal.Options{Output: os.Stdout})

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(commands.ExitCode(err))
	}
}
