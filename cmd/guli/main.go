/*
Guli starts an interactive gul session: a REPL that accepts fn and
struct declarations, an mn: block, or any mix of statements, and runs
each chunk against one persistent session the moment it is submitted.

Usage:

	guli [flags]
	guli [flags] FILE

With a FILE argument, guli runs the whole file once and exits instead
of starting a prompt loop.

The flags are:

	-v, --version
		Give the current version of the gul toolchain and then exit.

	-d, --direct
		Force reading directly from stdin instead of going through GNU
		readline, even when attached to a real terminal.
*/
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dekarrin/gul"
	"github.com/dekarrin/gul/internal/input"
	"github.com/dekarrin/gul/internal/version"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
)

const (
	// ExitSuccess indicates the session ran to completion without error.
	ExitSuccess = iota

	// ExitRunError indicates a file given on the command line failed to
	// parse or run.
	ExitRunError

	// ExitInitError indicates too many command-line arguments were given
	// or the REPL's input reader could not be set up.
	ExitInitError
)

var (
	returnCode  = ExitSuccess
	flagVersion = pflag.BoolP("version", "v", false, "Give the current version of the gul toolchain and then exit.")
	flagDirect  = pflag.BoolP("direct", "d", false, "Force reading directly from stdin instead of going through GNU readline where possible.")
)

type commandReader interface {
	ReadCommand() (string, error)
	AllowBlank(bool)
	Close() error
}

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			panic(fmt.Sprintf("unrecoverable panic occurred: %v", panicErr))
		} else {
			os.Exit(returnCode)
		}
	}()

	pflag.Parse()

	if *flagVersion {
		fmt.Printf("guli %s\n", version.Current)
		return
	}

	args := pflag.Args()
	if len(args) == 1 {
		runFile(args[0])
		return
	}
	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "Too many arguments\nDo -h for help.\n")
		returnCode = ExitInitError
		return
	}

	runREPL()
}

func runFile(path string) {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err.Error())
		returnCode = ExitRunError
		return
	}
	if err := gul.Run(string(src), os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, gul.FormatDiagnostic(err))
		returnCode = ExitRunError
	}
}

func runREPL() {
	reader, err := newReader()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err.Error())
		returnCode = ExitInitError
		return
	}
	defer reader.Close()

	sess := gul.NewSession(os.Stdout)

	for {
		chunk, err := reader.ReadCommand()
		if err == io.EOF {
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err.Error())
			return
		}

		if err := sess.Eval(chunk); err != nil {
			fmt.Fprintln(os.Stderr, gul.FormatDiagnostic(err))
		}
	}
}

// newReader picks readline-backed input at an interactive terminal,
// falling back to direct buffered reads for piped input or --direct,
// the way tqi picks between its two CommandReader implementations.
func newReader() (commandReader, error) {
	if !*flagDirect && isatty.IsTerminal(os.Stdin.Fd()) {
		r, err := input.NewInteractiveReader()
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	return input.NewDirectReader(os.Stdin), nil
}
