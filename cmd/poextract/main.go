package main

import (
	"os"

	"github.com/joseph-ayodele/po-extract/cmd/poextract/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
