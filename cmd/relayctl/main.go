// Command relayctl inspects and purges pending events in a relay's durable
// store. It works on the store directly, so run it while the application
// that owns the store is stopped.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
