package config

import (
	"bytes"
	"testing"
)

func TestExitfWritesMessageAndExitsWithCode1(t *testing.T) {
	var out bytes.Buffer
	code := -1
	prevStderr, prevExit := stderr, exit
	stderr = &out
	exit = func(c int) { code = c }
	t.Cleanup(func() {
		stderr, exit = prevStderr, prevExit
	})

	Exitf("fatal: %s", "catalog missing")

	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if got := out.String(); got != "fatal: catalog missing\n" {
		t.Fatalf("stderr = %q, want %q", got, "fatal: catalog missing\n")
	}
}
