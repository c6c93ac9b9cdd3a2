package main

import (
	"os"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
