// Command textlictl is the operator tool of the textli server: it applies
// database migrations and mints the admin tokens used by the billing system.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fatal("textlictl", err)
	}
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
