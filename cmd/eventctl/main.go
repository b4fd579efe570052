// Command eventctl inspects and repairs the event pipeline: dead-letter topics, the dedup
// ledger and topic provisioning.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
