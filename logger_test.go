package scraper

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBufferedLogger(t *testing.T) {
	logger := BufferedLogger{}
	logger.Printf("hello %v", "world")
	logger.Printf("%d: %v", 2, "navigate")

	if diff := cmp.Diff("hello world\n2: navigate\n", logger.String()); diff != "" {
		t.Errorf("(-shouldBe +got)\n%v", diff)
	}

	flushed := BufferedLogger{}
	logger.Flush(&flushed)
	if diff := cmp.Diff("hello world\n2: navigate\n", flushed.String()); diff != "" {
		t.Errorf("(-shouldBe +got)\n%v", diff)
	}

	empty := BufferedLogger{}
	(&BufferedLogger{}).Flush(&empty)
	if empty.String() != "" {
		t.Errorf("flushing an empty logger wrote %q", empty.String())
	}
}

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := SlogLogger{
		Logger: slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
		Level:  slog.LevelWarn,
	}
	logger.Printf("%v\n", &OperationError{Code: OpClick, Err: ErrElementTimeout})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatal(err)
	}
	got := map[string]interface{}{
		"level":     entry["level"],
		"msg":       entry["msg"],
		"component": entry["component"],
	}
	shouldBe := map[string]interface{}{
		"level":     "WARN",
		"msg":       "3: click: element did not appear",
		"component": "browser",
	}
	if diff := cmp.Diff(shouldBe, got); diff != "" {
		t.Errorf("(-shouldBe +got)\n%v", diff)
	}
}
