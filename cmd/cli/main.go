package main

import (
	"github.com/mchmarny/credpulse/pkg/cli"
)

func main() {
	cli.Execute()
}
