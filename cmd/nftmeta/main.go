package main

import (
	"github.com/mchmarny/nftmeta/pkg/cli"
)

func main() {
	cli.Execute()
}
