// The main package for the beacon executable.
package main

import (
	"github.com/beaconlabs/beacon/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
