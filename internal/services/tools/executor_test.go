package tools

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestCommandExecutorSurvivesOverlongLines(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	script := "head -c 2000000 /dev/zero | tr '\\0' a; echo; " +
		"head -c 500000 /dev/zero | tr '\\0' b; echo; echo err >&2"

	var (
		mu    sync.Mutex
		lines []string
	)
	done := make(chan error, 1)
	go func() {
		done <- commandExecutor{}.Run(context.Background(), "sh", []string{"-c", script}, func(line string) {
			mu.Lock()
			lines = append(lines, line)
			mu.Unlock()
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(30 * time.Second):
		t.Fatal("executor did not return for a tool with an overlong output line")
	}

	mu.Lock()
	defer mu.Unlock()
	var as, bs int
	sawErr := false
	for _, line := range lines {
		if len(line) > maxLineBytes {
			t.Fatalf("forwarded line of %d bytes exceeds cap", len(line))
		}
		as += strings.Count(line, "a")
		bs += strings.Count(line, "b")
		if line == "err" {
			sawErr = true
		}
	}
	if as != 2000000 || bs != 500000 {
		t.Fatalf("lost output: %d a, %d b", as, bs)
	}
	if !sawErr {
		t.Fatalf("stderr line not forwarded: %d lines", len(lines))
	}
}

func TestSplitOutputLines(t *testing.T) {
	cases := []struct {
		name    string
		data    string
		atEOF   bool
		advance int
		token   string
		more    bool
	}{
		{"newline", "abc\ndef", false, 4, "abc", false},
		{"crlf", "abc\r\ndef", false, 5, "abc", false},
		{"carriage return", "10%\r20%\r", false, 4, "10%", false},
		{"trailing cr waits", "10%\r", false, 0, "", true},
		{"trailing cr at eof", "10%\r", true, 4, "10%", false},
		{"partial line", "abc", false, 0, "", true},
		{"final line", "abc", true, 3, "abc", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			advance, token, err := splitOutputLines([]byte(tc.data), tc.atEOF)
			if err != nil {
				t.Fatalf("split: %v", err)
			}
			if tc.more {
				if advance != 0 || token != nil {
					t.Fatalf("expected request for more data, got %d %q", advance, token)
				}
				return
			}
			if advance != tc.advance || string(token) != tc.token {
				t.Fatalf("split(%q) = %d %q, want %d %q", tc.data, advance, token, tc.advance, tc.token)
			}
		})
	}

	full := strings.Repeat("x", maxLineBytes)
	advance, token, _ := splitOutputLines([]byte(full), false)
	if advance != maxLineBytes || len(token) != maxLineBytes {
		t.Fatalf("full buffer should be emitted as a chunk, got %d", advance)
	}
}
