package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLoggerFormat(t *testing.T) {
	t.Run("json format emits json records", func(t *testing.T) {
		var buf strings.Builder
		logger := newLogger(&buf, &Config{LogFormat: "json"})

		logger.Info("ready")
		assert.True(t, strings.HasPrefix(buf.String(), "{"))
		assert.Contains(t, buf.String(), `"msg":"ready"`)
	})

	t.Run("pretty format emits text records", func(t *testing.T) {
		var buf strings.Builder
		logger := newLogger(&buf, &Config{LogFormat: "pretty"})

		logger.Info("ready")
		assert.Contains(t, buf.String(), "msg=ready")
	})
}

func TestNewLoggerLevel(t *testing.T) {
	t.Run("production suppresses debug", func(t *testing.T) {
		var buf strings.Builder
		logger := newLogger(&buf, &Config{AppEnv: "production", LogFormat: "json"})

		logger.Debug("noise")
		logger.Info("ready")
		assert.NotContains(t, buf.String(), "noise")
		assert.Contains(t, buf.String(), "ready")
	})

	t.Run("development keeps debug", func(t *testing.T) {
		var buf strings.Builder
		logger := newLogger(&buf, &Config{AppEnv: "development"})

		logger.Debug("verbose detail")
		assert.Contains(t, buf.String(), "verbose detail")
	})
}
