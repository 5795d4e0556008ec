package utils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/toyz/spectra/internal/errors"
)

func newTestDiagnostics(level DiagnosticLevel) (*DiagnosticSystem, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	d := NewDiagnosticSystem(level)
	d.SetOutput(buf)
	d.SetColors(false)
	d.showTime = false
	return d, buf
}

func TestDiagnosticSystem_Levels(t *testing.T) {
	d, buf := newTestDiagnostics(DiagnosticWarn)

	d.Info("hidden %d", 1)
	d.Verbose("hidden")
	d.Warn("shown %s", "warning")
	d.Error("shown error")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown warning")
	assert.Contains(t, out, "[ERROR] shown error")
}

func TestDiagnosticSystem_Report(t *testing.T) {
	d, buf := newTestDiagnostics(DiagnosticInfo)

	d.Report(errors.NewAmbiguousFact("app.py", 3, "route path is not a literal"))
	d.Report(errors.NewUnsupportedConstruct("app.py", 9, "websocket route skipped"))

	out := buf.String()
	assert.Contains(t, out, "[WARN] [AmbiguousFactError] app.py:3: route path is not a literal")
	assert.NotContains(t, out, "websocket", "unsupported constructs are verbose-only")
}

func TestDiagnosticSystem_SummarySorted(t *testing.T) {
	d, buf := newTestDiagnostics(DiagnosticInfo)

	d.Summary("Done", map[string]interface{}{"b": 2, "a": 1})

	out := buf.String()
	assert.Less(t, strings.Index(out, "a: 1"), strings.Index(out, "b: 2"))
}

func TestDiagnosticSystem_Discard(t *testing.T) {
	d := NewDiscardDiagnostics()
	d.Error("nothing to see")
	assert.Equal(t, DiagnosticSilent, d.Level())
}
