package main

import (
	"fmt"
	"os"

	"github.com/GabrielNunesIT/log2gelf/internal/cli"
)

func main() {
	err := cli.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "log2gelf:", err)
	}
	os.Exit(cli.ExitCode(err))
}
