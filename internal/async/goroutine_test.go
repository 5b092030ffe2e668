package async

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

type recordingLogger struct {
	entries chan string
}

func (l *recordingLogger) Error(format string, args ...any) {
	l.entries <- fmt.Sprintf(format, args...)
}

func TestGoLogsPanicWithStack(t *testing.T) {
	logger := &recordingLogger{entries: make(chan string, 1)}

	Go(logger, "ws-writer", func() {
		panic("broken pipe")
	})

	select {
	case entry := <-logger.entries:
		if !strings.Contains(entry, "ws-writer") || !strings.Contains(entry, "broken pipe") {
			t.Fatalf("panic log missing goroutine name or value: %q", entry)
		}
		if !strings.Contains(entry, "goroutine_test.go") {
			t.Fatalf("panic log missing stack trace: %q", entry)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("panic was not logged")
	}
}

func TestGoNilLoggerSwallowsPanic(t *testing.T) {
	done := make(chan struct{})

	Go(nil, "quiet", func() {
		defer close(done)
		panic("ignored")
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("goroutine did not run")
	}
}
