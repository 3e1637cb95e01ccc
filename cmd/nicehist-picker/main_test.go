package main

import (
	"strings"
	"testing"
)

func TestSanitizeQuery_Empty(t *testing.T) {
	result, err := sanitizeQuery("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "" {
		t.Fatalf("expected empty string, got %q", result)
	}
}

func TestSanitizeQuery_PlainText(t *testing.T) {
	result, err := sanitizeQuery("hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "hello world" {
		t.Fatalf("expected %q, got %q", "hello world", result)
	}
}

func TestSanitizeQuery_StripControlChars(t *testing.T) {
	result, err := sanitizeQuery("hello\x00\x01world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "helloworld" {
		t.Fatalf("expected control chars stripped, got %q", result)
	}
}

func TestSanitizeQuery_PreserveTab(t *testing.T) {
	result, err := sanitizeQuery("hello\tworld")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "hello\tworld" {
		t.Fatalf("expected tab preserved, got %q", result)
	}
}

func TestSanitizeQuery_RejectNewline(t *testing.T) {
	if _, err := sanitizeQuery("hello\nworld"); err == nil {
		t.Fatal("expected error for newline in query")
	}
}

func TestSanitizeQuery_RejectCarriageReturn(t *testing.T) {
	if _, err := sanitizeQuery("hello\rworld"); err == nil {
		t.Fatal("expected error for carriage return in query")
	}
}

func TestSanitizeQuery_TruncateLong(t *testing.T) {
	long := strings.Repeat("a", maxQueryLen+100)
	result, err := sanitizeQuery(long)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != maxQueryLen {
		t.Fatalf("expected truncation to %d bytes, got %d", maxQueryLen, len(result))
	}
}

func TestParseHistoryFlags_Defaults(t *testing.T) {
	opts, err := parseHistoryFlags(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.source != "predict" {
		t.Fatalf("expected default source %q, got %q", "predict", opts.source)
	}
	if opts.limit != 20 {
		t.Fatalf("expected default limit 20, got %d", opts.limit)
	}
}

func TestParseHistoryFlags_InvalidSource(t *testing.T) {
	if _, err := parseHistoryFlags([]string{"--source", "bogus"}); err == nil {
		t.Fatal("expected error for invalid --source")
	}
}

func TestParseHistoryFlags_InvalidLimit(t *testing.T) {
	if _, err := parseHistoryFlags([]string{"--limit", "0"}); err == nil {
		t.Fatal("expected error for non-positive --limit")
	}
}

func TestParseHistoryFlags_RejectsExtraArgs(t *testing.T) {
	if _, err := parseHistoryFlags([]string{"extra"}); err == nil {
		t.Fatal("expected error for unexpected positional argument")
	}
}
