package main

import (
	"os"

	"smartlink/cmd/smartlink/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
