/*
Gulc compiles a gul source file down to the native module text described
by spec §4.5.

Usage:

	gulc [flags] FILE

Once lexing, parsing, and semantic analysis succeed, gulc lowers the
program through the native code generator and writes the rendered module
text to the output path. gulc does not build the IR graph or run the
ownership checker, so it never reports an ownership error. If any stage
fails, gulc prints a diagnostic to stderr and exits non-zero.

The flags are:

	-v, --version
		Give the current version of the gul toolchain and then exit.

	-o, --output FILE
		Write the generated module to FILE instead of deriving a name
		from the input file (gul.toml's "output" field, or else the
		input's base name with its extension replaced by ".ll").

	-c, --config FILE
		Load project settings from FILE instead of "gul.toml" in the
		current directory. A missing default config file is not an
		error; a missing file named explicitly with --config is.

	--no-cache
		Skip the build cache even if the project config enables it.

	--lint
		Pass FILE to the external lint collaborator instead of
		compiling it. Prints the diagnostic strings it returns, one
		per line. The linter itself is a separate tool; gulc only
		defines the interface --fix is forwarded under.

	--fix
		Forwarded to --lint; ignored otherwise.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dekarrin/gul"
	"github.com/dekarrin/gul/internal/buildcache"
	"github.com/dekarrin/gul/internal/gulconfig"
	"github.com/dekarrin/gul/internal/util"
	"github.com/dekarrin/gul/internal/version"
	"github.com/spf13/pflag"
)

const (
	// ExitSuccess indicates the module was generated and written.
	ExitSuccess = iota

	// ExitCompileError indicates a lexical, syntactic, semantic, or
	// codegen error in the source being compiled.
	ExitCompileError

	// ExitUsageError indicates a problem with flags, arguments, or the
	// surrounding filesystem rather than the gul source itself.
	ExitUsageError
)

var (
	returnCode  = ExitSuccess
	flagVersion = pflag.BoolP("version", "v", false, "Give the current version of the gul toolchain and then exit.")
	flagOutput  = pflag.StringP("output", "o", "", "Write the generated module to FILE.")
	flagConfig  = pflag.StringP("config", "c", "gul.toml", "Load project settings from FILE.")
	flagNoCache = pflag.Bool("no-cache", false, "Skip the build cache even if the project config enables it.")
	flagLint    = pflag.Bool("lint", false, "Pass FILE to the external lint collaborator instead of compiling it.")
	flagFix     = pflag.Bool("fix", false, "Forwarded to --lint.")
)

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
		fmt.Printf("gulc %s\n", version.Current)
		return
	}

	args := pflag.Args()
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "Expected exactly one source file\nDo -h for help.\n")
		returnCode = ExitUsageError
		return
	}
	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "Expected exactly one source file, got %s\nDo -h for help.\n", util.MakeTextList(args))
		returnCode = ExitUsageError
		return
	}
	entry := args[0]

	if *flagLint {
		for _, diag := range lint(entry, *flagFix) {
			fmt.Println(diag)
		}
		return
	}

	mf, err := loadManifest(*flagConfig, entry, *flagOutput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err.Error())
		returnCode = ExitUsageError
		return
	}

	src, err := os.ReadFile(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err.Error())
		returnCode = ExitUsageError
		return
	}

	object, cacheNote, err := compile(string(src), mf)
	if err != nil {
		fmt.Fprintln(os.Stderr, gul.FormatDiagnostic(err))
		returnCode = ExitCompileError
		return
	}
	if cacheNote != "" {
		fmt.Fprintln(os.Stderr, cacheNote)
	}

	if err := os.WriteFile(mf.Output, []byte(object), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err.Error())
		returnCode = ExitUsageError
		return
	}
}

// lint forwards path (and fix) to the external lint collaborator and
// returns the diagnostic strings it reports. No such collaborator
// ships with this toolchain; gulc only defines the interface it is
// invoked under.
func lint(path string, fix bool) []string {
	return nil
}

// loadManifest reads the gul.toml at configPath, falling back to a bare
// manifest naming only entry when configPath does not exist and was
// never explicitly requested via --config.
func loadManifest(configPath, entry, outputOverride string) (gulconfig.Manifest, error) {
	mf, err := gulconfig.Load(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return gulconfig.Manifest{}, err
		}
		if pflag.Lookup("config").Changed {
			return gulconfig.Manifest{}, err
		}
		mf = gulconfig.Manifest{Entry: entry, Output: outputOverride}
	}
	mf.Entry = entry
	if outputOverride != "" {
		mf.Output = outputOverride
	}
	if mf.Output == "" {
		mf.Output = strings.TrimSuffix(entry, filepath.Ext(entry)) + ".ll"
	}
	return mf, nil
}

// compile runs the front end and code generator over src, consulting
// and populating the build cache described by mf.Cache when enabled.
func compile(src string, mf gulconfig.Manifest) (object string, cacheNote string, err error) {
	if !mf.Cache.Enabled || *flagNoCache {
		object, err = gul.Compile(src)
		return object, "", err
	}

	store, err := buildcache.Open(mf.Cache.Path)
	if err != nil {
		return "", "", fmt.Errorf("open build cache: %w", err)
	}
	defer store.Close()

	key := buildcache.Key(src, buildcache.Options{Target: string(mf.CodegenTarget)})
	ctx := context.Background()

	if entry, lookupErr := store.Lookup(ctx, key); lookupErr == nil {
		return entry.Object, fmt.Sprintf("gulc: build cache hit (run %s)", entry.RunID), nil
	}

	object, err = gul.Compile(src)
	if err != nil {
		return "", "", err
	}

	// The textual codegen path has no ir.Graph to persist alongside the
	// rendered module, so IRGraph is left as an empty placeholder value.
	if _, putErr := store.Put(ctx, key, struct{}{}, object); putErr != nil {
		return object, fmt.Sprintf("gulc: warning: could not write build cache entry: %s", putErr.Error()), nil
	}
	return object, "", nil
}
