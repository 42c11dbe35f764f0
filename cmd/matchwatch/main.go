package main

import (
	"os"

	"matchwatch/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
