// The main package for the poewiki-assets executable.
package main

import (
	"github.com/JakeFAU/poewiki-assets/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
