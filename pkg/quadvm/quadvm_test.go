package quadvm

import (
	"strings"
	"testing"

	"github.com/Mohtashimkhan22/C-to-ARM-Cross-Compiler/pkg/compiler"
)

// run compiles src, executes it and returns the PRINT lines.
func run(t *testing.T, src string, inputs ...int32) string {
	t.Helper()
	u := compiler.NewUnit(src, false)
	prog, err := u.Run()
	if err != nil {
		t.Fatalf("structural failure: %v", err)
	}
	if !u.Clean() {
		t.Fatalf("compile errors: lex=%v syn=%v sem=%v",
			u.Scanner.Errors.Records(), u.Parser.Errors.Records(), u.Sema.Errors.Records())
	}

	var out strings.Builder
	vm := New(prog, &out)
	vm.Inputs = inputs
	if err := vm.Run(); err != nil {
		t.Fatalf("execution: %v\n%s", err, prog.Listing())
	}
	return out.String()
}

func TestExecute(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		stdin []int32
	}{
		{
			name:  "Arithmetic",
			input: "output(2 + 3 * 4 - 10 / 2);",
			want:  "PRINT 9\n",
		},
		{
			name:  "Modulo",
			input: "output(17 % 5);",
			want:  "PRINT 2\n",
		},
		{
			name:  "UnaryOps",
			input: "output(-5); output(!0); output(!7);",
			want:  "PRINT -5\nPRINT 1\nPRINT 0\n",
		},
		{
			name:  "WhileLoop",
			input: "int i; i = 0; while (i < 3) { output(i); i = i + 1; }",
			want:  "PRINT 0\nPRINT 1\nPRINT 2\n",
		},
		{
			name: "ForLoopWithBreak",
			input: `
				int i;
				for (i = 0; i < 10; i = i + 1) {
					if (i == 3) { break; }
					output(i);
				}
				output(100);`,
			want: "PRINT 0\nPRINT 1\nPRINT 2\nPRINT 100\n",
		},
		{
			name: "ForLoopWithContinue",
			input: `
				int i;
				for (i = 0; i < 5; i = i + 1) {
					if (i % 2 == 0) { continue; }
					output(i);
				}`,
			want: "PRINT 1\nPRINT 3\n",
		},
		{
			name: "NestedLoops",
			input: `
				int i; int j;
				for (i = 1; i < 3; i = i + 1) {
					for (j = 1; j < 3; j = j + 1) {
						output(i * 10 + j);
					}
				}`,
			want: "PRINT 11\nPRINT 12\nPRINT 21\nPRINT 22\n",
		},
		{
			name:  "IfElse",
			input: "int x; x = 5; if (x > 3) { output(1); } else { output(2); }",
			want:  "PRINT 1\n",
		},
		{
			name:  "ShortCircuitAnd",
			input: "int x; x = 0; output(x != 0 && 10 / x > 1); output(1 < 2 && 2 < 3);",
			want:  "PRINT 0\nPRINT 1\n",
		},
		{
			name:  "ShortCircuitOr",
			input: "output(1 == 1 || 0); output(0 || 0);",
			want:  "PRINT 1\nPRINT 0\n",
		},
		{
			name: "FunctionCall",
			input: `
				int add(int a, int b) { return a + b; }
				output(add(2, 3));
				output(add(add(1, 2), 4));`,
			want: "PRINT 5\nPRINT 7\n",
		},
		{
			// The declaration is the loop body; g's own while binds the
			// break, not the for around the declaration.
			name: "FunctionDeclaredAsLoopBody",
			input: `
				int i;
				for (i = 0; i < 2; i = i + 1)
					int g() {
						int j;
						j = 0;
						while (j < 3) { j = j + 1; if (j == 2) { break; } }
						return j;
					}
				output(g());`,
			want: "PRINT 2\n",
		},
		{
			name: "Recursion",
			input: `
				int fact(int n) {
					if (n < 2) { return 1; }
					return n * fact(n - 1);
				}
				output(fact(5));`,
			want: "PRINT 120\n",
		},
		{
			name: "MainIsCalled",
			input: `
				int g;
				g = 7;
				void main() { output(g + 1); }`,
			want: "PRINT 8\n",
		},
		{
			name: "GlobalsAndLocals",
			input: `
				int g;
				int bump(int by) { g = g + by; return g; }
				g = 10;
				output(bump(5));
				output(bump(1));`,
			want: "PRINT 15\nPRINT 16\n",
		},
		{
			name: "Arrays",
			input: `
				int a[5];
				int i;
				for (i = 0; i < 5; i = i + 1) { a[i] = i * i; }
				output(a[4]);
				output(a[0] + a[3]);`,
			want: "PRINT 16\nPRINT 9\n",
		},
		{
			name: "FloatArithmetic",
			input: `
				float f;
				f = 1.5;
				f = f + 2;
				output(f);`,
			want: "PRINT 3.500000\n",
		},
		{
			name:  "FloatComparison",
			input: "float f; f = 0.5; if (f < 1.0) { output(1); } else { output(0); }",
			want:  "PRINT 1\n",
		},
		{
			name:  "Input",
			input: "output(input() + 1); output(input());",
			want:  "PRINT 8\nPRINT -2\n",
			stdin: []int32{7, -2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := run(t, tt.input, tt.stdin...)
			if got != tt.want {
				t.Errorf("output mismatch\ngot:  %q\nwant: %q", got, tt.want)
			}
		})
	}
}

func TestExecuteParsedListing(t *testing.T) {
	src := `
		int fib(int n) {
			if (n < 2) { return n; }
			return fib(n - 1) + fib(n - 2);
		}
		output(fib(10));`

	u := compiler.NewUnit(src, false)
	prog, err := u.Run()
	if err != nil || !u.Clean() {
		t.Fatalf("compile failed: %v", err)
	}

	// The serialized listing must execute identically to the in-memory program.
	back, err := compiler.ParseListing(prog.Listing())
	if err != nil {
		t.Fatalf("ParseListing: %v", err)
	}
	var out strings.Builder
	vm := New(back, &out)
	if err := vm.Run(); err != nil {
		t.Fatalf("execution: %v", err)
	}
	if out.String() != "PRINT 55\n" {
		t.Errorf("fib(10): got %q, want %q", out.String(), "PRINT 55\n")
	}
}

func TestStepLimit(t *testing.T) {
	u := compiler.NewUnit("while (1 == 1) { }", false)
	prog, err := u.Run()
	if err != nil || !u.Clean() {
		t.Fatalf("compile failed: %v", err)
	}
	var out strings.Builder
	vm := New(prog, &out)
	vm.MaxSteps = 1000
	if err := vm.Run(); err == nil {
		t.Error("infinite loop not stopped by the step limit")
	}
}

func TestDivisionByZero(t *testing.T) {
	u := compiler.NewUnit("int z; z = 0; output(1 / z);", false)
	prog, _ := u.Run()
	var out strings.Builder
	if err := New(prog, &out).Run(); err == nil {
		t.Error("division by zero not reported")
	}
}
