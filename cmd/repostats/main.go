package main

import (
	"os"

	"github.com/sunpy/sunpy-contribution-statistics/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
