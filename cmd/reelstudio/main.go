package main

import (
	"os"

	"github.com/antoniostano/reelstudio/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
