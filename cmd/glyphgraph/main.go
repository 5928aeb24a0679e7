// Command glyphgraph renders node graphs of vector operators.
package main

import (
	"os"

	"github.com/chazu/glyphgraph/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
