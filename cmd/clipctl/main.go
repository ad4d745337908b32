package main

import (
	"os"

	"github.com/cuongbtq/clipstack/cmd/clipctl/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
