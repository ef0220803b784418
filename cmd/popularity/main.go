package main

import (
	"os"

	"github.com/krithika183/spotify-popularity-predicton/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
