package queue

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAppendEventLineClaimed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allocation.log")
	ev := AccountEvent{
		Kind:       KindClaimed,
		Requester:  "tg:12345",
		Username:   "acct1",
		Row:        3,
		Region:     "ES",
		OccurredAt: "2026-08-29T10:00:00Z",
	}
	if err := appendEventLine(path, ev); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	for _, want := range []string{"Account claimed", "requester=tg:12345", `account="acct1"`, "row=3", "region=ES"} {
		if !strings.Contains(line, want) {
			t.Fatalf("log line missing %q: %s", want, line)
		}
	}
}

func TestAppendEventLineReported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allocation.log")
	ev := AccountEvent{
		Kind:       KindReported,
		Requester:  "tg:12345",
		Username:   "acct1",
		Row:        3,
		Outcome:    "BROKEN",
		State:      "BROKEN",
		OccurredAt: "2026-08-29T10:05:00Z",
	}
	if err := appendEventLine(path, ev); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "Outcome reported") || !strings.Contains(string(data), "outcome=BROKEN") {
		t.Fatalf("unexpected log line: %s", data)
	}
}

func TestAppendEventLineAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allocation.log")
	for i := 0; i < 3; i++ {
		if err := appendEventLine(path, AccountEvent{Kind: KindClaimed, Username: "acct1"}); err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}
	data, _ := os.ReadFile(path)
	if got := strings.Count(string(data), "\n"); got != 3 {
		t.Fatalf("expected 3 lines, got %d", got)
	}
}
