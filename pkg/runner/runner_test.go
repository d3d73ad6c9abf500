package runner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestFilterPrints(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "MarkerStripped",
			in:   "PRINT 1\nPRINT 2\n",
			want: "1\n2\n",
		},
		{
			name: "NoiseDropped",
			in:   "loading program\nPRINT 42\nexecuted 17 quads\n",
			want: "42\n",
		},
		{
			name: "OnlyPrefixMatches",
			in:   "  PRINT 1\nREPRINT 2\nPRINT 3\n",
			want: "3\n",
		},
		{
			name: "Empty",
			in:   "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FilterPrints(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// writeFakeTester drops an executable script standing in for the prebuilt
// tester binary.
func writeFakeTester(t *testing.T, dir, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script tester stand-in")
	}
	name := "fake_tester"
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
	return name
}

func TestRunFiltersOutput(t *testing.T) {
	dir := t.TempDir()
	name := writeFakeTester(t, dir, "echo 'starting up'\necho 'PRINT 7'\necho 'PRINT 8'\n")

	out, err := Run(context.Background(), Options{Dir: dir, Tester: name})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "7\n8\n" {
		t.Errorf("filtered output: got %q, want %q", out, "7\n8\n")
	}
}

func TestRunVerboseKeepsEverything(t *testing.T) {
	dir := t.TempDir()
	name := writeFakeTester(t, dir, "echo 'starting up'\necho 'PRINT 7'\n")

	out, err := Run(context.Background(), Options{Dir: dir, Tester: name, Verbose: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "starting up\nPRINT 7\n" {
		t.Errorf("verbose output: got %q", out)
	}
}

func TestRunTimeout(t *testing.T) {
	dir := t.TempDir()
	name := writeFakeTester(t, dir, "echo 'PRINT 1'\nexec sleep 30\n")

	start := time.Now()
	_, err := Run(context.Background(), Options{
		Dir:     dir,
		Tester:  name,
		Timeout: 200 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("run was not killed promptly: %s", elapsed)
	}
}

func TestRunFailingTester(t *testing.T) {
	dir := t.TempDir()
	name := writeFakeTester(t, dir, "echo 'boom' >&2\nexit 3\n")

	if _, err := Run(context.Background(), Options{Dir: dir, Tester: name}); err == nil {
		t.Error("tester exit status not propagated")
	}
}

func TestTesterName(t *testing.T) {
	name := TesterName()
	switch runtime.GOOS {
	case "darwin":
		if name != "tester_Mac.out" {
			t.Errorf("got %q", name)
		}
	case "windows":
		if name != "tester_Windows.exe" {
			t.Errorf("got %q", name)
		}
	default:
		if name != "tester_Linux.out" {
			t.Errorf("got %q", name)
		}
	}
}
