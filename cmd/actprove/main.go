package main

import (
	"os"

	"github.com/develuxes/solidity-act/cmd/actprove/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
