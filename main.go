package main

import (
	"os"

	"github.com/jotvault/jotvault/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
