package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/zinco/internal/logger"
)

func TestEnsureDatabase_SkipsNonURLDSN(t *testing.T) {
	assert.NoError(t, ensureDatabase("host=localhost user=postgres dbname=zinco"))
	assert.NoError(t, ensureDatabase("postgres://localhost:5432/"))
	assert.NoError(t, ensureDatabase("postgres://localhost:5432/postgres"))
}

func TestGormLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, slog.LevelDebug, "text")
	gl := NewGormLogger(log, false)
	query := func() (string, int64) { return `SELECT * FROM "device_records"`, 1 }

	gl.Trace(context.Background(), time.Now(), query, nil)
	assert.Empty(t, buf.String())

	gl.Trace(context.Background(), time.Now(), query, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	gl.Trace(context.Background(), time.Now(), query, errors.New("connection reset"))
	assert.Contains(t, buf.String(), "query failed")
	assert.Contains(t, buf.String(), "connection reset")

	buf.Reset()
	gl.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)
	assert.Contains(t, buf.String(), "slow query")
}

func TestGormLogger_DebugAndSilent(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, slog.LevelDebug, "text")
	query := func() (string, int64) { return "SELECT 1", 1 }

	NewGormLogger(log, true).Trace(context.Background(), time.Now(), query, nil)
	assert.Contains(t, buf.String(), "SELECT 1")

	buf.Reset()
	NewGormLogger(log, true).LogMode(gormlogger.Silent).Trace(context.Background(), time.Now(), query, errors.New("boom"))
	assert.Empty(t, buf.String())
}
