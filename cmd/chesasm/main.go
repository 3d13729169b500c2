// Command chesasm assembles the textual format implemented by
// internal/asm into a byte-exact .chesc container file.
package main

import (
	"fmt"
	"os"

	"cheschine/internal/asm"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: chesasm <source.casm> <out.chesc>")
		os.Exit(2)
	}

	source, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	container, err := asm.Assemble(string(source))
	if err != nil {
		fmt.Fprintln(os.Stderr, "assemble:", err)
		os.Exit(1)
	}

	if err := os.WriteFile(os.Args[2], container, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
