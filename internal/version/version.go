// Package version contains information on the current version of the
// toolchain. It is split from the main program for easy use.
package version

// Current is the string representing the current version of the gul
// toolchain (lexer, parser, semantic analyzer, IR, code generator, VM, and
// interpreter).
const Current = "0.1.0"
