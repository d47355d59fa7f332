package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupAndRecover(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, false)
	assert.True(t, Initialized())

	// only the first call takes effect
	var other bytes.Buffer
	Setup(&other, true)

	cleaned := false
	func() {
		defer RecoverPanic("analyze", func() { cleaned = true })
		panic("boom")
	}()

	assert.True(t, cleaned)
	assert.Contains(t, buf.String(), "Panic in analyze")
	assert.Contains(t, buf.String(), "panic=boom")
	assert.Contains(t, buf.String(), "component=analyze")
	assert.Empty(t, other.String())

	slog.Debug("not shown")
	assert.NotContains(t, buf.String(), "not shown")

	buf.Reset()
	Component("equiv").Info("checked", "binaries", 3)
	assert.Contains(t, buf.String(), "component=equiv")
	assert.Contains(t, buf.String(), "binaries=3")
}
