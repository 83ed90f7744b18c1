package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cageclock/internal/services"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			printError(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// printError writes err and, for classified daemon errors, the advice for
// its kind when the message does not already say it.
func printError(w io.Writer, err error) {
	fmt.Fprintln(w, "Error:", err)
	if _, ok := services.As(err); !ok {
		return
	}
	hint := services.UserMessage(err)
	if hint == "" || strings.Contains(err.Error(), hint) {
		return
	}
	fmt.Fprintln(w, "Hint:", hint)
}
