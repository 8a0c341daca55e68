package main

import "github.com/liskstats/aggregator/internal/cli"

func main() {
	cli.Execute()
}
