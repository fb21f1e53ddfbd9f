package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Levels(t *testing.T) {
	log, err := New("dev", false)
	require.NoError(t, err)
	assert.False(t, log.SugaredLogger.Desugar().Core().Enabled(zap.DebugLevel))

	verbose, err := New("prod", true)
	require.NoError(t, err)
	assert.True(t, verbose.SugaredLogger.Desugar().Core().Enabled(zap.DebugLevel))
}

func TestWith_CarriesFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := &Logger{SugaredLogger: zap.New(core).Sugar()}

	log.With("doc_id", "doc-1").Warn("quality gate failed", "ratio", 0.5)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "quality gate failed", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "doc-1", fields["doc_id"])
	assert.Equal(t, 0.5, fields["ratio"])
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	log := Nop()
	assert.Same(t, log, OrNop(log))
}
