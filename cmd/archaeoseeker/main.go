package main

import (
	"os"

	"stealthcompany.com/archaeoseeker/internal/cli"
)

func main() {
	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
