// keymouse - mouse and keyboard recorder
// Records global input and replays it with the recorded timing.
package main

import (
	"os"

	"keymouse/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
