// Command maintctl runs database maintenance tasks for maintdb: migrations,
// seeding, schema inspection and printing checklists.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
