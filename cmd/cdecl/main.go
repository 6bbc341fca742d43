// Command cdecl is a demo driver over the Declaration Coordinator: it
// reads a file (or stdin) of top-level declarations, parses every one
// it finds, and prints the resolved type of each declarator plus any
// diagnostics raised along the way.
//
// Adapted from the teacher's cmd/x64cc/main.go CLI shape, swapping the
// standard `flag` package for spf13/pflag (as fragata-ai-chlicc's own
// driver does) and the compile-and-emit pipeline for a
// parse-and-report one, since code generation is out of scope here.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/cdecl-lang/cdecl/coordinator"
	"github.com/cdecl-lang/cdecl/ctypes"
	"github.com/cdecl-lang/cdecl/diag"
	"github.com/cdecl-lang/cdecl/target"
	"github.com/cdecl-lang/cdecl/token"
)

func printVersion() {
	fmt.Println("cdecl - a standalone C11 declaration type resolver")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  cdecl [flags] [FILE]")
	fmt.Println()
	fmt.Println("With no FILE, or FILE '-', reads from stdin. Input must already be")
	fmt.Println("preprocessed: no #include, no macros, no conditional compilation.")
	fmt.Println()
	fmt.Println("Flags:")
	pflag.PrintDefaults()
}

var archNames = map[string]target.Arch{
	"amd64": target.AMD64,
	"arm64": target.ARM64,
	"386":   target.I386,
	"arm":   target.ARM,
}

var osNames = map[string]target.OS{
	"linux":   target.Linux,
	"darwin":  target.Darwin,
	"windows": target.Windows,
	"uefi":    target.UEFI,
	"freebsd": target.FreeBSD,
}

func main() {
	pflag.Usage = printUsage
	version := pflag.BoolP("version", "v", false, "print version info and exit")
	archFlag := pflag.String("arch", "amd64", "target architecture: amd64, arm64, 386, arm")
	osFlag := pflag.String("os", "linux", "target OS: linux, darwin, windows, uefi, freebsd")
	dumpAll := pflag.Bool("dump-types", true, "print the resolved type of each declarator")
	pflag.Parse()

	if *version {
		printVersion()
		return
	}

	arch, ok := archNames[*archFlag]
	if !ok {
		fmt.Fprintf(os.Stderr, "cdecl: unknown architecture %q\n", *archFlag)
		os.Exit(1)
	}
	osv, ok := osNames[*osFlag]
	if !ok {
		fmt.Fprintf(os.Stderr, "cdecl: unknown OS %q\n", *osFlag)
		os.Exit(1)
	}
	ctx := target.NewDefault(osv, arch)

	path := "-"
	if pflag.NArg() >= 1 {
		path = pflag.Arg(0)
	}
	in := os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cdecl: %s\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	exitCode := run(path, in, ctx, *dumpAll)
	os.Exit(exitCode)
}

func run(path string, in *os.File, ctx target.Context, dumpAll bool) int {
	lexer := token.NewLexer(path, in)
	toks, err := lexer.All()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cdecl: %s\n", err)
		return 1
	}

	sink := &diag.CollectingSink{}
	co, err := coordinator.New(token.NewSlice(toks), ctx, sink)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cdecl: %s\n", err)
		return 1
	}

	decls, err := co.ParseTranslationUnit()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cdecl: %s\n", err)
		return 1
	}

	if dumpAll {
		for _, d := range decls {
			name := d.Name
			if name == "" {
				name = "<anonymous>"
			}
			fmt.Printf("%s: %s\n", name, ctypes.Dump(d.Type, name))
		}
	}

	exitCode := 0
	for _, r := range sink.Records {
		fmt.Fprintln(os.Stderr, r.String())
		exitCode = 1
	}
	return exitCode
}
