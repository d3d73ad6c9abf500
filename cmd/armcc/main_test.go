package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCommandFlags(t *testing.T) {
	for _, name := range []string{
		"out",
		"run",
		"verbose",
		"tokens",
		"abstract-syntax-tree",
		"symbol-table",
		"error-files",
	} {
		if rootCmd.Flags().Lookup(name) == nil {
			t.Errorf("flag --%s not registered", name)
		}
	}
}

func TestVerbosePrintsListing(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "prog.c")
	if err := os.WriteFile(srcPath, []byte("int x; x = 1 + 2; output(x);"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"-v", "-o", dir, srcPath})
	defer func() { verbose = false }()
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	// Verbose mode shows the three-address listing alongside the progress.
	for _, want := range []string{"compiling...", "(ADD", "(PRINT"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("verbose output missing %q:\n%s", want, out.String())
		}
	}
}
