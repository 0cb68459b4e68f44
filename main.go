package main

import (
	"github.com/Peter554/circle-cli/cmd"
	"github.com/Peter554/circle-cli/internal/logger"
)

func main() {
	defer logger.Sync()
	cmd.Execute()
}
