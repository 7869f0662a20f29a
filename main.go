package main

import (
	"os"

	"github.com/quizpal/quizpal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
