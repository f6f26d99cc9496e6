package main

import (
	"os"

	"github.com/solatis/gridview/cmd/gridview/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
