// hashpass generates the bcrypt hash for the operator password so it can be
// placed in config.json or the ADMIN_PASS_HASH environment variable.
package main

import (
	"fmt"
	"os"

	"straddle-trading-bot/internal/auth"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: hashpass <password>")
		os.Exit(1)
	}

	hash, err := auth.HashPassword(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
