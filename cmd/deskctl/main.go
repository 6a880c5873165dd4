package main

import (
	"fmt"
	"os"

	"desktop-realtime/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "deskctl:", err)
		os.Exit(1)
	}
}
