// Package main is the entry point for cencli.
package main

import (
	"os"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
