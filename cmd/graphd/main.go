package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/socialscraper/graphd/internal/cli"
)

func main() {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
