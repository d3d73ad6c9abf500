// Command tester executes the quadruple listing a compilation leaves in
// output.txt. Program output appears as PRINT-marked lines; the input()
// primitive reads integers from stdin.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/Mohtashimkhan22/C-to-ARM-Cross-Compiler/pkg/compiler"
	"github.com/Mohtashimkhan22/C-to-ARM-Cross-Compiler/pkg/quadvm"
)

func main() {
	listing := "output.txt"
	if len(os.Args) > 1 {
		listing = os.Args[1]
	}
	text, err := os.ReadFile(listing)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	prog, err := compiler.ParseListing(string(text))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	vm := quadvm.New(prog, out)
	vm.Inputs = readInputs(os.Stdin)
	if err := vm.Run(); err != nil {
		out.Flush()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// readInputs drains whitespace-separated integers without blocking on an
// empty stdin pipe.
func readInputs(f *os.File) []int32 {
	st, err := f.Stat()
	if err != nil || st.Mode()&os.ModeCharDevice != 0 {
		return nil
	}
	var vals []int32
	sc := bufio.NewScanner(f)
	sc.Split(bufio.ScanWords)
	for sc.Scan() {
		var v int32
		if _, err := fmt.Sscan(sc.Text(), &v); err == nil {
			vals = append(vals, v)
		}
	}
	return vals
}
