package logging

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

func TestParseLevel(t *testing.T) {
	test.That(t, ParseLevel("debug"), test.ShouldEqual, zapcore.DebugLevel)
	test.That(t, ParseLevel(" WARN "), test.ShouldEqual, zapcore.WarnLevel)
	test.That(t, ParseLevel("error"), test.ShouldEqual, zapcore.ErrorLevel)
	test.That(t, ParseLevel(""), test.ShouldEqual, zapcore.InfoLevel)
	test.That(t, ParseLevel("verbose"), test.ShouldEqual, zapcore.InfoLevel)
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "estimator.log")
	logger := New(Options{Level: "info", File: path, Production: true})
	logger.Infow("estimate built", "image_hash", "abc")
	// stderr sync errors on some platforms; the file core writes through.
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldContainSubstring, "estimate built")
	test.That(t, string(data), test.ShouldContainSubstring, `"image_hash":"abc"`)
}
