package telemetry

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogSelectionOnceDedupesPerVariant(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	defer SetLogger(nil)

	s := NewState()
	s.LogSelectionOnce("attention", "decode_chunked_f16kv", "use_f16_kv and can_use_chunked")
	s.LogSelectionOnce("attention", "decode_chunked_f16kv", "use_f16_kv and can_use_chunked")
	s.LogSelectionOnce("attention", "subgroup", "can_subgroup")

	out := buf.String()
	assert.Equal(t, 2, countOccurrences(out, "kernel variant selected"))
}

func TestWarnOnceDedupesByTopicAndMessage(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	defer SetLogger(nil)

	s := NewState()
	s.WarnOnce("unknown-override", "override foo not recognized")
	s.WarnOnce("unknown-override", "override foo not recognized")
	s.WarnOnce("unknown-override", "override bar not recognized")

	assert.Equal(t, 2, countOccurrences(buf.String(), "level=WARN"))
}

func TestResetClearsDedup(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	defer SetLogger(nil)

	s := NewState()
	s.WarnOnce("topic", "msg")
	s.Reset()
	s.WarnOnce("topic", "msg")

	assert.Equal(t, 2, countOccurrences(buf.String(), "level=WARN"))
}

func countOccurrences(haystack, needle string) int {
	count := 0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			count++
		}
	}
	return count
}
