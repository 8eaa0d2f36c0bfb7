package main

import (
	"os"

	memorygraphcmder "github.com/memorygraphco/memorygraph/cmd/memorygraph"
)

func main() {
	cmd := memorygraphcmder.NewMemorygraphCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
