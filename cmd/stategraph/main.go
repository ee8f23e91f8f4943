// Command stategraph runs and inspects the built-in state graph workflows.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/randalmurphal/stategraph/internal/cli"
)

func main() {
	if err := cli.New().Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
