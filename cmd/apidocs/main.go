package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dshills/apidocs/internal/cli"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	err := cli.Execute(context.Background(), cli.BuildInfo{
		Version:   version,
		BuildTime: buildTime,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
