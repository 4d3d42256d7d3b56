package feedkit

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStdLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStdLogger(log.New(&buf, "", 0), false)

	logger.Debugf("hidden %d", 1)
	logger.Infof("verified %s", "abc")
	logger.Warnf("lease %d", 0)
	logger.Errorf("failed: %v", "boom")
	logger.Info("100%")

	assert.Equal(t, "[INFO] verified abc\n[WARN] lease 0\n[ERROR] failed: boom\n[INFO] 100%\n", buf.String())

	buf.Reset()
	logger.Debug = true
	logger.Debugf("shown %d", 2)
	assert.Equal(t, "[DEBUG] shown 2\n", buf.String())
}

func TestNewStdLogger_DefaultsToStandardLogger(t *testing.T) {
	assert.Same(t, log.Default(), NewStdLogger(nil, false).Out)
}
