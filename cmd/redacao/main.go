package main

import (
	"os"

	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
