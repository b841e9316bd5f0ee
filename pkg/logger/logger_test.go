package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("whatever"))
}

func TestContextHelpers(t *testing.T) {
	fallback := zap.NewNop()
	assert.Same(t, fallback, FromContext(context.Background(), fallback))

	l := zap.NewExample()
	ctx := WithContext(context.Background(), l)
	ctx = WithRequestID(ctx, "req-1")
	assert.Same(t, l, FromContext(ctx, fallback))
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "", RequestID(context.Background()))
}

func TestGormLoggerTrace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), "info")
	ctx := WithRequestID(context.Background(), "req-7")

	gl.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)
	gl.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT 2", 0 }, gorm.ErrRecordNotFound)
	gl.Trace(ctx, time.Now(), func() (string, int64) { return "INSERT", 0 }, errors.New("boom"))

	entries := logs.All()
	if assert.Len(t, entries, 3) {
		assert.Equal(t, "sql", entries[0].Message)
		assert.Equal(t, "req-7", entries[0].ContextMap()["request_id"])
		// record-not-found is not an error
		assert.Equal(t, "sql", entries[1].Message)
		assert.Equal(t, "sql error", entries[2].Message)
	}

	silent := gl.LogMode(gormlogger.Silent)
	silent.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT 3", 0 }, errors.New("x"))
	assert.Len(t, logs.All(), 3)
}
