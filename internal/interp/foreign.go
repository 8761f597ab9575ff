package interp

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/dekarrin/gul/internal/gulerrors"
)

// runForeign executes one @python/@rust/@sql/@c/@js block (spec §3/§4.7's
// foreign block). Python runs directly through the host interpreter;
// Rust is compiled to a throwaway binary and run once, then cleaned up;
// sql/js/c have no embeddable host runtime available in this toolchain,
// so they are reported to out rather than silently dropped, matching
// the rest of the interpreter's "never silently succeed" failure policy.
func runForeign(language, code string, out io.Writer) error {
	switch language {
	case "python":
		return runPython(code, out)
	case "rust":
		return runRust(code, out)
	case "sql", "js", "c":
		fmt.Fprintf(out, "[foreign:%s] execution not supported by this host, skipping block\n", language)
		return nil
	default:
		return gulerrors.Runtime("unknown foreign block language %q", language)
	}
}

func runPython(code string, out io.Writer) error {
	cmd := exec.Command("python3", "-c", code)
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Run(); err != nil {
		return gulerrors.WrapRuntime(err, "@python block failed: %s", err)
	}
	return nil
}

func runRust(code string, out io.Writer) error {
	dir, err := os.MkdirTemp("", "gul-rust-*")
	if err != nil {
		return gulerrors.WrapRuntime(err, "@rust block: could not create temp dir: %s", err)
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "block.rs")
	bin := filepath.Join(dir, "block")
	if err := os.WriteFile(src, []byte(code), 0o600); err != nil {
		return gulerrors.WrapRuntime(err, "@rust block: could not write source: %s", err)
	}

	compile := exec.Command("rustc", "-O", "-o", bin, src)
	compile.Stdout = out
	compile.Stderr = out
	if err := compile.Run(); err != nil {
		return gulerrors.WrapRuntime(err, "@rust block failed to compile: %s", err)
	}

	run := exec.Command(bin)
	run.Stdout = out
	run.Stderr = out
	if err := run.Run(); err != nil {
		return gulerrors.WrapRuntime(err, "@rust block failed: %s", err)
	}
	return nil
}
