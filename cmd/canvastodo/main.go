package main

import (
	"os"

	"github.com/nhle/canvas-todo/internal/app"
	"github.com/nhle/canvas-todo/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(app.ExitCode(err))
	}
}
