package pta_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/BarrensZeppelin/pta"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaintConfig(t *testing.T) {
	prog := taintProgram(t, `
          - return
`, "")

	t.Run("Valid", func(t *testing.T) {
		log, hook := test.NewNullLogger()
		config, err := pta.ParseTaintConfig([]byte(taintRules), prog, log)
		require.NoError(t, err)
		assert.Empty(t, hook.AllEntries())

		require.Len(t, config.Sources, 1)
		assert.Equal(t, method(t, prog, "<Source: String get()>"), config.Sources[0].Method)
		assert.Equal(t, prog.Class("String"), config.Sources[0].Type)

		require.Len(t, config.Sinks, 1)
		assert.Equal(t, 0, config.Sinks[0].Index)

		require.Len(t, config.Transfers, 3)
		assert.Equal(t, 0, config.Transfers[0].From)
		assert.Equal(t, pta.ResultSlot, config.Transfers[0].To)
		assert.Equal(t, pta.BaseSlot, config.Transfers[1].To)
		assert.Equal(t, pta.BaseSlot, config.Transfers[2].From)

		assert.Equal(t, "<Util: String wrap(String)>: 0 -> result(Tainted)", config.Transfers[0].String())
		assert.Contains(t, config.String(), "<Sink: void take(String)>/0")
	})

	t.Run("NumericSlots", func(t *testing.T) {
		log, hook := test.NewNullLogger()
		config, err := pta.ParseTaintConfig([]byte(`
transfers:
  - { method: "<Util: String wrap(String)>", from: 0, to: -2, type: Tainted }
  - { method: "<StringBuilder: String toString()>", from: -1, to: -2, type: String }
  - { method: "<StringBuilder: void append(String)>", from: 0, to: -1, type: StringBuilder }
`), prog, log)
		require.NoError(t, err)
		assert.Empty(t, hook.AllEntries())

		require.Len(t, config.Transfers, 3)
		assert.Equal(t, pta.ResultSlot, config.Transfers[0].To)
		assert.Equal(t, pta.BaseSlot, config.Transfers[1].From)
		assert.Equal(t, pta.ResultSlot, config.Transfers[1].To)
		assert.Equal(t, pta.BaseSlot, config.Transfers[2].To)
	})

	t.Run("Empty", func(t *testing.T) {
		config, err := pta.ParseTaintConfig(nil, prog, quietLogger())
		require.NoError(t, err)
		assert.Empty(t, config.Sources)
		assert.Empty(t, config.Sinks)
		assert.Empty(t, config.Transfers)
	})

	t.Run("DroppedRules", func(t *testing.T) {
		log, hook := test.NewNullLogger()
		config, err := pta.ParseTaintConfig([]byte(`
sources:
  - { method: "<Source: String nope()>", type: String }
  - { method: "<Source: String get()>", type: Nope }
  - { method: "<Source: String get()>", type: Tainted }
sinks:
  - { method: "<Sink: void take(String)>", index: 1 }
  - { method: "<Sink: void take(String)>", index: -1 }
transfers:
  - { method: "<Util: String wrap(String)>", from: base, to: result, type: String }
  - { method: "<Util: String wrap(String)>", from: result, to: 0, type: String }
  - { method: "<StringBuilder: void append(String)>", from: 0, to: result, type: String }
  - { method: "<Util: String wrap(String)>", from: 0, to: "-3", type: String }
  - { method: "<Util: String wrap(String)>", from: [0], to: result, type: String }
  - { method: "<Util: String wrap(String)>", to: result, type: String }
`), prog, log)
		require.NoError(t, err)

		require.Len(t, config.Sources, 1)
		assert.Equal(t, prog.Class("Tainted"), config.Sources[0].Type)
		assert.Empty(t, config.Sinks)
		assert.Empty(t, config.Transfers)

		assert.Len(t, hook.AllEntries(), 10)
		for _, e := range hook.AllEntries() {
			assert.Equal(t, logrus.WarnLevel, e.Level)
			assert.Contains(t, e.Message, "Dropping taint")
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		for _, data := range []string{
			"sources: [",
			"sources: 3",
			"sinks:\n  - { method: x, index: y }",
			"unknown: []",
		} {
			_, err := pta.ParseTaintConfig([]byte(data), prog, quietLogger())
			assert.True(t, errors.Is(err, pta.ErrTaintConfig), data)
		}
	})
}

func TestLoadTaintConfig(t *testing.T) {
	prog := taintProgram(t, `
          - return
`, "")
	dir := t.TempDir()

	_, err := pta.LoadTaintConfig(filepath.Join(dir, "missing.yml"), prog, quietLogger())
	assert.True(t, errors.Is(err, os.ErrNotExist))

	file := filepath.Join(dir, "taint.yml")
	require.NoError(t, os.WriteFile(file, []byte(taintRules), 0o644))
	config, err := pta.LoadTaintConfig(file, prog, quietLogger())
	require.NoError(t, err)
	assert.Len(t, config.Sources, 1)
	assert.Len(t, config.Sinks, 1)
	assert.Len(t, config.Transfers, 3)
}
