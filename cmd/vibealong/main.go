// Command vibealong plays scripted chat scenarios and serves the demo API.
package main

import (
	"os"

	"github.com/vibealong/vibealong/internal/cli"
)

// Set via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
