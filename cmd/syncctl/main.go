// Command syncctl runs order and shipping syncs from the command line
// against the same database and marketplace configuration as the server.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(openApp, loadIssuer).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
