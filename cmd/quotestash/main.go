package main

import (
	"fmt"
	"os"

	"quotestash/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "quotestash:", err)
		os.Exit(1)
	}
}
