package main

import (
	"os"

	"github.com/critiq/critiq/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
