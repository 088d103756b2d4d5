package main

import (
	"os"

	"github.com/duskhollow/duskhollow/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
