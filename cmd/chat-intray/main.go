package main

import (
	"os"

	"github.com/cristianoliveira/chat-intray/cmd"
	"github.com/cristianoliveira/chat-intray/internal/colors"
	"github.com/cristianoliveira/chat-intray/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:], cmd.Execute))
}

// run executes the command tree and returns the process exit code.
func run(args []string, execute func() error) int {
	colors.StructuredInfo("startup", "main", "started", nil, "", map[string]any{"args": len(args)})
	defer logging.ShutdownGlobal()
	defer appRuntime.Close()

	if err := execute(); err != nil {
		colors.StructuredError("startup", "main", "failed", err, "", nil)
		colors.Error(err.Error())
		return 1
	}
	colors.StructuredInfo("startup", "main", "completed", nil, "", nil)
	return 0
}
