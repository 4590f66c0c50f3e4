package main

import (
	"os"

	"github.com/ppiankov/skyfeed/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
