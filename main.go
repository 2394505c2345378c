// The main package for the mention-monitor executable.
package main

import (
	"github.com/hashedlabs/mention-monitor/cmd"
)

// main defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
