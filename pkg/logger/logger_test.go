package logger

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func captureStdLog(t *testing.T, fn func()) string {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	flags := log.Flags()
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	})
	fn()
	return buf.String()
}

func TestStdLogger(t *testing.T) {
	t.Run("filters by level", func(t *testing.T) {
		l := NewStdLogger(false, NoticeLevel)
		out := captureStdLog(t, func() {
			l.Info("hidden %d", 1)
			l.Notice("shown %d", 2)
			l.Error("also shown")
		})
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, "[NOTICE] shown 2")
		assert.Contains(t, out, "[ERROR]  also shown")
	})

	t.Run("chain prefix", func(t *testing.T) {
		l := NewStdLogger(false, DebugLevel)
		out := captureStdLog(t, func() {
			l.InfoWithChain(11155111, "swap sent")
			l.DebugWithChain(88882, "transfer sent")
			l.InfoWithChain(1, "unknown chain")
		})
		assert.Contains(t, out, "[INFO]   [SEPOLIA] swap sent")
		assert.Contains(t, out, "[DEBUG]  [CHILIZ]  transfer sent")
		assert.Contains(t, out, "[INFO]   unknown chain")
	})
}

func TestParseLevel(t *testing.T) {
	level, ok := ParseLevel("NOTICE")
	assert.True(t, ok)
	assert.Equal(t, NoticeLevel, level)

	_, ok = ParseLevel("verbose")
	assert.False(t, ok)
}

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapLoggerFrom(zap.New(core))

	l.NoticeWithChain(88882, "fallback for %s", "pay_1")
	l.Info("plain")

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Equal(t, "fallback for pay_1", entries[0].Message)
		assert.Equal(t, "chiliz", entries[0].ContextMap()["chain"])
		assert.Equal(t, "plain", entries[1].Message)
	}
}
