package main

import (
	"os"

	"github.com/sn3fru/silvanews-sub000/cmd/silvanews"
)

func main() {
	if err := silvanews.Execute(); err != nil {
		os.Exit(1)
	}
}
