package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dpshade/prompt-mover/internal/cli"
)

var version = "0.1.0"

func main() {
	cli.Version = version

	if err := cli.NewCLI(os.Stdout, os.Stderr).Execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
