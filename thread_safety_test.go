package scraper

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

// TestThreadSafetyOperations runs operations on one session from many
// goroutines; they must be serialized.
func TestThreadSafetyOperations(t *testing.T) {
	ts := newTestServer(t)
	session := newTestSession(t, &BufferedLogger{})
	ctx := context.Background()

	if err := session.Navigate(ctx, ts.URL); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}

	const numGoroutines = 10
	const numOperations = 5

	var wg sync.WaitGroup
	errors := make(chan error, numGoroutines*numOperations)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numOperations; j++ {
				var err error
				switch (id + j) % 3 {
				case 0:
					err = session.Type(ctx, "#q", fmt.Sprintf("v%d-%d", id, j))
				case 1:
					var got string
					got, err = session.ExtractOne(ctx, ".a", "textContent")
					if err == nil && got != "one" {
						err = fmt.Errorf("ExtractOne() = %q", got)
					}
				default:
					var ok bool
					ok, err = session.ElementExists(ctx, "#next")
					if err == nil && !ok {
						err = fmt.Errorf("ElementExists() = false")
					}
				}
				if err != nil {
					errors <- err
					return
				}
			}
		}(i)
	}

	wg.Wait()
	close(errors)

	for err := range errors {
		t.Errorf("Concurrent operation error: %v", err)
	}
}

// TestThreadSafetyLogger writes to one BufferedLogger from many goroutines.
func TestThreadSafetyLogger(t *testing.T) {
	logger := &BufferedLogger{}

	const numGoroutines = 50
	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logger.Printf("line %d", id)
		}(i)
	}
	wg.Wait()

	lines := 0
	for _, c := range logger.String() {
		if c == '\n' {
			lines++
		}
	}
	if lines != numGoroutines {
		t.Errorf("got %d lines, want %d", lines, numGoroutines)
	}
}
