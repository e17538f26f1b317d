package log

import (
	"bytes"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// lazyCore 推迟 core.With(fields) 到第一次真正写日志时执行。
// 只创建不使用的子 Logger（例如每个 encoder 一个）不会产生字段编码开销。
// 参考 https://github.com/uber-go/zap/issues/1426。
type lazyCore struct {
	once   sync.Once
	parent zapcore.Core
	fields []zapcore.Field
	core   atomic.Pointer[zapcore.Core]
}

var _ zapcore.Core = (*lazyCore)(nil)

// NewLazyWith 返回等价于 core.With(fields)、但延迟求值的 Core。
func NewLazyWith(core zapcore.Core, fields []zapcore.Field) zapcore.Core {
	return &lazyCore{parent: core, fields: fields}
}

func (c *lazyCore) resolve() zapcore.Core {
	c.once.Do(func() {
		core := c.parent.With(c.fields)
		c.core.Store(&core)
	})
	return *c.core.Load()
}

// Enabled 只取决于级别，不需要展开字段。
func (c *lazyCore) Enabled(level zapcore.Level) bool {
	if core := c.core.Load(); core != nil {
		return (*core).Enabled(level)
	}
	return c.parent.Enabled(level)
}

func (c *lazyCore) With(fields []zapcore.Field) zapcore.Core {
	return c.resolve().With(fields)
}

func (c *lazyCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return c.resolve().Check(e, ce)
}

func (c *lazyCore) Write(e zapcore.Entry, fields []zapcore.Field) error {
	return c.resolve().Write(e, fields)
}

func (c *lazyCore) Sync() error {
	return c.resolve().Sync()
}

// testWriter 把日志写到 testing.T，实现参考 go.uber.org/zap/zaptest（MIT）。
type testWriter struct {
	t          zaptest.TestingT
	markFailed bool
}

func (w testWriter) Write(p []byte) (int, error) {
	// t.Logf 自带换行。
	w.t.Logf("%s", bytes.TrimRight(p, "\n"))
	if w.markFailed {
		w.t.Fail()
	}
	return len(p), nil
}

func (w testWriter) Sync() error {
	return nil
}
