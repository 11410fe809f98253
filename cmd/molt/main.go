// molt disassembles compiled module files: every code object in the file,
// outermost first, one instruction word per line.
package main

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/ATSOTECK/adder/internal/marshal"
	"github.com/ATSOTECK/adder/internal/runtime"
)

const headerColor = "\x1b[1;36m"
const resetColor = "\x1b[0m"

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: molt <module.pyc>")
		os.Exit(2)
	}

	code, header, err := marshal.LoadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}

	colorize := term.IsTerminal(int(os.Stdout.Fd()))
	fmt.Printf("%s  (magic %d, CPython %s)\n\n", os.Args[1], header.Magic, header.Version)
	dump(code, colorize)
}

// dump prints a code object and then every code object in its constants
func dump(code *runtime.CodeObject, colorize bool) {
	listing := code.Disassemble()
	if colorize {
		head, rest, found := strings.Cut(listing, "\n")
		if found {
			listing = headerColor + head + resetColor + "\n" + rest
		}
	}
	fmt.Println(listing)
	for _, c := range code.Consts {
		if nested, ok := c.(*runtime.CodeObject); ok {
			dump(nested, colorize)
		}
	}
}
