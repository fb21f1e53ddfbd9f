package score

import (
	"errors"
	"math"
	"os"
	"testing"

	"github.com/ppiankov/kgcurator/internal/logging"
	"github.com/ppiankov/kgcurator/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func defaultCombiner() *Combiner {
	return NewCombiner(model.DefaultConfig().Calibration, logging.Nop())
}

func signals(text, know, prior float64, conflict bool) Signals {
	return Signals{
		TextConfidence:        Float(text),
		KnowledgePlausibility: Float(know),
		PatternPrior:          Float(prior),
		Conflict:              conflict,
	}
}

func TestCombiner_ConflictPullsBelowHalf(t *testing.T) {
	// Boulder located_in Lafayette: confident text, implausible knowledge, conflict
	p, err := defaultCombiner().Combine(signals(0.9, 0.1, 0.5, true))
	require.NoError(t, err)
	assert.Less(t, p, 0.5)
}

func TestCombiner_AgreeingSignalsScoreHigh(t *testing.T) {
	p, err := defaultCombiner().Combine(signals(0.9, 0.9, 0.7, false))
	require.NoError(t, err)
	assert.Greater(t, p, 0.85)
}

func TestCombiner_ConflictLowersProbability(t *testing.T) {
	c := defaultCombiner()
	without, err := c.Combine(signals(0.8, 0.6, 0.5, false))
	require.NoError(t, err)
	with, err := c.Combine(signals(0.8, 0.6, 0.5, true))
	require.NoError(t, err)
	assert.Less(t, with, without)
}

func TestCombiner_LogisticFormula(t *testing.T) {
	coef := model.CalibrationConfig{B0: -1, WText: 2, WKnow: 1, WPrior: 0.5, WConflict: -3}
	b, err := NewCombiner(coef, nil).Explain(signals(0.5, 0.5, 0.4, false))
	require.NoError(t, err)

	z := -1 + 2*0.5 + 1*0.5 + 0.5*0.4
	assert.InDelta(t, z, b.Z, 1e-12)
	assert.InDelta(t, 1/(1+math.Exp(-z)), b.PTrue, 1e-12)
	assert.Contains(t, b.Formula, "e^-")
}

func TestCombiner_StrictlyInsideUnitInterval(t *testing.T) {
	coef := model.CalibrationConfig{B0: 100}
	p, err := NewCombiner(coef, nil).Combine(signals(1, 1, 1, false))
	require.NoError(t, err)
	assert.Less(t, p, 1.0)

	coef = model.CalibrationConfig{B0: -100}
	p, err = NewCombiner(coef, nil).Combine(signals(0, 0, 0, false))
	require.NoError(t, err)
	assert.Greater(t, p, 0.0)
}

func TestCombiner_MissingSignal(t *testing.T) {
	c := defaultCombiner()
	_, err := c.Combine(Signals{TextConfidence: Float(0.5), PatternPrior: Float(0.5)})
	require.Error(t, err)

	var missing *MissingSignalError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "knowledge_plausibility", missing.Signal)

	_, err = c.Combine(Signals{KnowledgePlausibility: Float(0.5), PatternPrior: Float(0.5)})
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "text_confidence", missing.Signal)

	_, err = c.Combine(signals(math.NaN(), 0.5, 0.5, false))
	assert.True(t, errors.As(err, &missing))
}

func TestCombiner_ClampsWithWarning(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := &logging.Logger{SugaredLogger: zap.New(core).Sugar()}
	c := NewCombiner(model.DefaultConfig().Calibration, log)

	b, err := c.Explain(signals(1.4, -0.2, 0.5, false))
	require.NoError(t, err)
	assert.Equal(t, 1.0, b.Inputs["text_confidence"])
	assert.Equal(t, 0.0, b.Inputs["knowledge_plausibility"])
	assert.ElementsMatch(t, []string{"text_confidence", "knowledge_plausibility"}, b.Clamped)
	assert.Equal(t, 2, logs.FilterMessage("signal out of range, clamped").Len())

	clamped, err := c.Combine(signals(1, 0, 0.5, false))
	require.NoError(t, err)
	assert.Equal(t, clamped, b.PTrue)
}

func TestCombiner_LegacyMean(t *testing.T) {
	coef := model.DefaultConfig().Calibration
	coef.Mode = ModeMean
	p, err := NewCombiner(coef, nil).Combine(signals(0.9, 0.1, 0.5, true))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p, 1e-9)
}

func TestCombiner_CalibratedOnGoldSet(t *testing.T) {
	f, err := os.Open("testdata/gold_edges.jsonl")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	gold, err := LoadLabeled(f)
	require.NoError(t, err)
	require.Len(t, gold, 150)

	samples, err := Evaluate(defaultCombiner(), gold)
	require.NoError(t, err)

	assert.LessOrEqual(t, ExpectedCalibrationError(samples, 10), 0.07)
	for _, b := range ReliabilityBuckets(samples, 10) {
		if b.Count < 10 {
			continue
		}
		assert.LessOrEqualf(t, b.Gap(), 0.07, "bucket [%.1f,%.1f) gap", b.Lower, b.Upper)
	}
}
