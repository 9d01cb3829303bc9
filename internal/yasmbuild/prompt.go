package yasmbuild

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// askForConfirmation prints a [y/N] question and reads one answer line.
// Only an explicit "y" or "yes" (any case) confirms; anything else,
// including an empty line or a closed reader, declines.
func askForConfirmation(p colorPrinter, in io.Reader, format string, a ...any) bool {
	if f, ok := in.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		colWarn.Println("!! Standard input is not a terminal; pass --no-prompt for unattended runs.")
	}

	reader := bufio.NewReader(in)
	for {
		cPrintf(p, format, a...)
		fmt.Print(" [y/N] ")

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		case "", "n", "no":
			return false
		}
		colWarn.Println("Please answer y or n.")
		if err != nil {
			return false
		}
	}
}
