package main

import (
	"os"

	"github.com/logrusorgru/aurora"
	"golang.org/x/term"
)

// au colours output only when stdout is a terminal.
var au = aurora.NewAurora(term.IsTerminal(int(os.Stdout.Fd())))
