package main

import (
	"os"

	"github.com/proteingym/pg2-benchmark/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
