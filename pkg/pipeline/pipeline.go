// Package pipeline drives a full compilation: front end, artifact files and
// the ARM backend. The CLI and the HTTP server are both thin wrappers over it.
package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Mohtashimkhan22/C-to-ARM-Cross-Compiler/pkg/arm"
	"github.com/Mohtashimkhan22/C-to-ARM-Cross-Compiler/pkg/compiler"
)

// Default artifact file names, relative to Options.Dir.
const (
	AssemblyFile    = "armv8_output.s"
	ListingFile     = "output.txt"
	TokensFile      = "tokens.txt"
	TreeFile        = "parse_tree.txt"
	SymbolTableFile = "symbol_table.txt"
	LexErrorsFile   = "lexical_errors.txt"
	SynErrorsFile   = "syntax_errors.txt"
	SemErrorsFile   = "semantic_errors.txt"
)

// Options selects the artifacts a run produces beyond the assembly and the
// quad listing, which are always written.
type Options struct {
	Dir         string    // artifact directory; empty means the working directory
	Tokens      bool      // write the token dump
	Tree        bool      // build and write the derivation tree
	SymbolTable bool      // write the symbol table dump
	ErrorFiles  bool      // write the three per-category error files
	Log         io.Writer // phase progress; nil silences it
}

// Result is everything a run produced, independent of what was written to disk.
type Result struct {
	Clean    bool
	Assembly string // empty unless Clean
	Listing  string
	Report   string // per-category error report; sentinels when clean

	Lexical  []compiler.Diagnostic
	Syntax   []compiler.Diagnostic
	Semantic []compiler.Diagnostic
}

// Compile runs the whole pipeline over src and writes the artifact files.
// The returned error covers structural failures only (address space
// exhaustion, unwritable artifacts); source-level diagnostics land in the
// Result and in armv8_output.s.
func Compile(src string, opts Options) (*Result, error) {
	log := opts.Log
	if log == nil {
		log = io.Discard
	}

	fmt.Fprintln(log, "compiling...")
	u := compiler.NewUnit(src, opts.Tree)
	prog, err := u.Run()
	if err != nil {
		return nil, err
	}

	res := &Result{
		Clean:    u.Clean(),
		Lexical:  u.Scanner.Errors.Records(),
		Syntax:   u.Parser.Errors.Records(),
		Semantic: u.Sema.Errors.Records(),
	}
	res.Report = report(u)

	if res.Clean {
		fmt.Fprintln(log, "generating ARMv8 assembly...")
		res.Listing = prog.Listing()
		if res.Assembly, err = arm.Generate(prog); err != nil {
			return nil, err
		}
	} else {
		fmt.Fprintln(log, res.Report)
		fmt.Fprintf(log, "compilation failed with %d error(s)\n", u.ErrorCount())
	}

	if err := writeArtifacts(u, res, opts); err != nil {
		return nil, err
	}
	fmt.Fprintln(log, "done.")
	return res, nil
}

// report joins the three category texts in pipeline order. A clean run yields
// the three sentinel lines.
func report(u *compiler.Unit) string {
	return strings.Join([]string{
		u.Scanner.Errors.Text(),
		u.Parser.Errors.Text(),
		u.Sema.Errors.Text(),
	}, "\n")
}

func writeArtifacts(u *compiler.Unit, res *Result, opts Options) error {
	// The assembly file doubles as the error report on a failed run, so a
	// stale .s from a previous success never survives.
	asm := res.Assembly
	if !res.Clean {
		asm = res.Report + "\n"
	}
	files := map[string]string{
		AssemblyFile: asm,
		ListingFile:  res.Listing,
	}
	if opts.Tokens {
		files[TokensFile] = u.Scanner.TokensText()
	}
	if opts.Tree {
		files[TreeFile] = u.Parser.TreeText()
	}
	if opts.SymbolTable {
		files[SymbolTableFile] = u.Table.DumpText()
	}
	if opts.ErrorFiles {
		files[LexErrorsFile] = u.Scanner.Errors.Text() + "\n"
		files[SynErrorsFile] = u.Parser.Errors.Text() + "\n"
		files[SemErrorsFile] = u.Sema.Errors.Text() + "\n"
	}
	for name, content := range files {
		path := filepath.Join(opts.Dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}
