package main

import (
	"os"

	"github.com/gridpool/gridpool/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
