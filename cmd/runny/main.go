package main

import (
	"github.com/xobs/runny/internal/cli"
	"github.com/xobs/runny/internal/metrics"
)

func main() {
	metrics.EmitBuildInfo()
	cli.Execute()
}
