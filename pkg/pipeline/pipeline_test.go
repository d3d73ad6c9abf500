package pipeline

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readArtifact(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("reading %s: %v", name, err)
	}
	return string(data)
}

func TestCompileSuccess(t *testing.T) {
	dir := t.TempDir()
	res, err := Compile("int x; x = 1 + 2; output(x);", Options{Dir: dir})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !res.Clean {
		t.Fatalf("expected clean run, report:\n%s", res.Report)
	}
	if !strings.Contains(res.Assembly, ".global main") {
		t.Errorf("assembly looks wrong:\n%s", res.Assembly)
	}

	asm := readArtifact(t, dir, AssemblyFile)
	if asm != res.Assembly {
		t.Error("armv8_output.s does not match the returned assembly")
	}
	listing := readArtifact(t, dir, ListingFile)
	if !strings.Contains(listing, "#globals 4") {
		t.Errorf("quad listing looks wrong:\n%s", listing)
	}

	// Optional dumps were not requested.
	if _, err := os.Stat(filepath.Join(dir, TokensFile)); !os.IsNotExist(err) {
		t.Error("tokens.txt written without being requested")
	}
}

func TestCompileFailureWritesReport(t *testing.T) {
	dir := t.TempDir()
	res, err := Compile("int x = 5;\ny = 1;", Options{Dir: dir})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if res.Clean {
		t.Fatal("expected a failed run")
	}
	if res.Assembly != "" {
		t.Error("assembly produced for a failed run")
	}

	// The assembly file carries the error report instead.
	asm := readArtifact(t, dir, AssemblyFile)
	if !strings.Contains(asm, "expected SEMICOLON") {
		t.Errorf("missing syntax diagnostic in report:\n%s", asm)
	}
	if !strings.Contains(asm, "undeclared identifier 'y'") {
		t.Errorf("missing semantic diagnostic in report:\n%s", asm)
	}
	// The clean category still reports its sentinel line.
	if !strings.Contains(asm, "There is no lexical errors.") {
		t.Errorf("missing lexical sentinel in report:\n%s", asm)
	}
}

func TestCompileLexicalErrorGatesBackend(t *testing.T) {
	dir := t.TempDir()
	// '@' is not part of the language; the rest of the program is valid.
	res, err := Compile("int x; x = 1 @;", Options{Dir: dir})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if res.Clean || res.Assembly != "" {
		t.Fatal("backend must not run with lexical errors")
	}
	if len(res.Lexical) == 0 {
		t.Fatal("lexical category empty")
	}
	if len(res.Syntax) != 0 || len(res.Semantic) != 0 {
		t.Errorf("recovery should leave the other categories clean: syn=%v sem=%v",
			res.Syntax, res.Semantic)
	}
	asm := readArtifact(t, dir, AssemblyFile)
	if strings.Contains(asm, ".text") {
		t.Errorf("assembly written despite errors:\n%s", asm)
	}
}

func TestCompileSentinelsWhenClean(t *testing.T) {
	dir := t.TempDir()
	res, err := Compile("int x; x = 1;", Options{Dir: dir, ErrorFiles: true})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !res.Clean {
		t.Fatalf("unexpected errors:\n%s", res.Report)
	}

	wants := map[string]string{
		LexErrorsFile: "There is no lexical errors.",
		SynErrorsFile: "There is no syntax error.",
		SemErrorsFile: "The input program is semantically correct.",
	}
	for name, want := range wants {
		got := readArtifact(t, dir, name)
		if strings.TrimSpace(got) != want {
			t.Errorf("%s: got %q, want %q", name, got, want)
		}
	}
}

func TestCompileOptionalDumps(t *testing.T) {
	dir := t.TempDir()
	_, err := Compile("int x; if (x < 1) { x = 2; }", Options{
		Dir:         dir,
		Tokens:      true,
		Tree:        true,
		SymbolTable: true,
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	if got := readArtifact(t, dir, TokensFile); !strings.Contains(got, "KEYWORD") {
		t.Errorf("token dump:\n%s", got)
	}
	if got := readArtifact(t, dir, TreeFile); !strings.Contains(got, "IfStmt") {
		t.Errorf("tree dump:\n%s", got)
	}
	if got := readArtifact(t, dir, SymbolTableFile); !strings.Contains(got, "x") {
		t.Errorf("symbol table dump:\n%s", got)
	}
}

func TestCompileLogCarriesReport(t *testing.T) {
	// A failed run prints its report to the log so callers that only see
	// the driver text (the HTTP shell) still get the diagnostics.
	var log bytes.Buffer
	_, err := Compile("output(y);", Options{Dir: t.TempDir(), Log: &log})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	for _, want := range []string{
		"undeclared identifier 'y'",
		"compilation failed with 1 error(s)",
	} {
		if !strings.Contains(log.String(), want) {
			t.Errorf("log missing %q:\n%s", want, log.String())
		}
	}
}

func TestCompileProgressLog(t *testing.T) {
	var log bytes.Buffer
	_, err := Compile("int x; x = 1;", Options{Dir: t.TempDir(), Log: &log})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	for _, want := range []string{"compiling...", "generating ARMv8 assembly...", "done."} {
		if !strings.Contains(log.String(), want) {
			t.Errorf("progress log missing %q:\n%s", want, log.String())
		}
	}
}

func TestCompileIsRepeatable(t *testing.T) {
	dir := t.TempDir()
	src := "int i; for (i = 0; i < 3; i = i + 1) { output(i); }"

	first, err := Compile(src, Options{Dir: dir})
	if err != nil {
		t.Fatalf("first compile: %v", err)
	}
	second, err := Compile(src, Options{Dir: dir})
	if err != nil {
		t.Fatalf("second compile: %v", err)
	}
	if first.Assembly != second.Assembly || first.Listing != second.Listing {
		t.Error("repeated compilation of the same source differs")
	}
}
