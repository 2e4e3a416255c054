package main

import (
	"os"

	"github.com/avolkov/ats-reconciler/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
