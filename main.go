package main

import (
	"os"

	"github.com/rtzll/tldm/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
