package main

import (
	"context"
	"os"

	"github.com/g960059/pomobar/internal/cli"
)

func main() {
	r := cli.NewRunner(os.Stdout, os.Stderr)
	os.Exit(r.Run(context.Background(), os.Args[1:]))
}
