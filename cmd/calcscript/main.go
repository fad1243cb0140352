package main

import (
	"os"

	"calcscript/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
