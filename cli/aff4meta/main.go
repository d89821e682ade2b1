package main

import (
	"os"

	aff4metacmder "github.com/papercomputeco/aff4meta/cmd/aff4meta"
)

func main() {
	cmd := aff4metacmder.NewAFF4MetaCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
