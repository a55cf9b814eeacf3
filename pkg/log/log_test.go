package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// 未经 Init 的日志调用必须安全：后台消费者与被测的业务代码
// 都可能在 logger 初始化之前跑起来。
func TestLoggingBeforeInitDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		Info("message")
		Infof("formatted %d", 1)
		Infow("structured", "key", "value")
		Warnf("warn %s", "x")
		Error("failed", assert.AnError)
		Errorf("failed: %v", assert.AnError)
		Sync()
	})
}

func TestInitReplacesLogger(t *testing.T) {
	before := sugar
	Init("info", "console", "")
	assert.NotNil(t, sugar)
	assert.NotSame(t, before, sugar)

	assert.NotPanics(t, func() {
		Infof("after init %d", 1)
	})
}

func TestInitFallsBackOnBadLevel(t *testing.T) {
	assert.NotPanics(t, func() {
		Init("not-a-level", "json", "")
		Info("still works")
	})
}
