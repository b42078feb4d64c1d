package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTitlerUsesGeneratedTitle(t *testing.T) {
	titler := NewTitler(&fakeGenerator{reply: `"Lisbon Weather"`}, time.Second)
	if got := titler.Title(context.Background(), "what is the weather in Lisbon"); got != "Lisbon Weather" {
		t.Fatalf("unexpected title: %q", got)
	}
}

func TestTitlerFallbackOnError(t *testing.T) {
	titler := NewTitler(&fakeGenerator{err: errors.New("model down")}, time.Second)
	if got := titler.Title(context.Background(), "hi"); got != "hi" {
		t.Fatalf("unexpected fallback: %q", got)
	}
}

func TestTitlerFallbackTruncatesLongMessages(t *testing.T) {
	titler := NewTitler(&fakeGenerator{err: errors.New("model down")}, time.Second)
	got := titler.Title(context.Background(), "please summarize the entire history of computing for me")
	if got != "please summarize the..." {
		t.Fatalf("unexpected fallback: %q", got)
	}
}

func TestTitlerFallbackOnEmptyReply(t *testing.T) {
	titler := NewTitler(&fakeGenerator{reply: `  "" `}, time.Second)
	if got := titler.Title(context.Background(), "hello"); got != "hello" {
		t.Fatalf("unexpected fallback: %q", got)
	}
}

func TestTitlerTruncatesOverlongGeneratedTitle(t *testing.T) {
	long := strings.Repeat("x", 80)
	titler := NewTitler(&fakeGenerator{reply: long}, time.Second)
	got := titler.Title(context.Background(), "hello")
	if got != strings.Repeat("x", 47)+"..." {
		t.Fatalf("unexpected title: %q", got)
	}
}
