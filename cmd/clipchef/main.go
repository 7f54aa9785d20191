package main

import (
	"context"
	"os"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	state := &cliState{}
	if err := execute(context.Background(), state, newRootCmd(state)); err != nil {
		os.Exit(1)
	}
}
