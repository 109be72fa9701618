// cmd/dogcfg/main.go
//
// dogcfg command-line front end.
//
// Commands
// --------
//
//	dogcfg validate <file|->        check a document locally, no network
//	dogcfg pull <guild>             print the stored document
//	dogcfg push <guild> <file|->    validate, then save through the API
//
// pull and push drive the same editor session the web editor uses, so the
// save gate is identical: push exits 2 and sends nothing when the document
// has violations.
package main

import (
	"fmt"
	"os"
)

func main() {
	cmd := newRootCmd(os.Stdin)
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(exitCode(err))
}
