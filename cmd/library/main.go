// Command library is the terminal front end of the Tree Kings Library API:
// browse the catalog, stage a checkout, return books and see loans.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	root := newRootCmd(os.Stdin, os.Stdout, newClient)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, renderError(err))
		os.Exit(1)
	}
}
