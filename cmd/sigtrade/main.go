package main

import (
	"os"

	"github.com/wonny/sigtrade/cmd/sigtrade/commands"
)

// main is the entry point for the sigtrade CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/sigtrade [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(commands.ExitCode(err))
	}
}
