package main

import (
	"os"

	"github.com/kyson-dev/sub-optimizer/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
