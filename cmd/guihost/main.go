// Command guihost runs a terminal notes GUI as a module of a modular
// application. Closing the GUI stops the host and its exit code becomes the
// process exit code.
package main

import (
	"fmt"
	"os"
)

func main() {
	exitCode := 0
	if err := newRootCommand(&exitCode).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}
