package main

import (
	"fmt"
	"os"

	"hakoniwa.dev/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "hakoniwa:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
