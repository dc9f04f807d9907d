// Command respondd serves the records demo API and formats JSON from stdin.
// Usage: respondd serve [--config respond.yaml] | respondd format [--callback name]
package main

import (
	"fmt"
	"os"

	"github.com/raysh454/respond/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.NewRootCommand(version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
