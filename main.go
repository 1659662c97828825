package main

import (
	"log"

	"github.com/shaharia-lab/formrelay/cmd"
)

func main() {
	assets, err := getAssetsFS()
	if err != nil {
		log.Fatalf("failed to load static assets: %v", err)
	}
	cmd.Assets = assets
	cmd.Execute()
}
