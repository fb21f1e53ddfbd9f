package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/kgcurator/internal/logging"
	"github.com/ppiankov/kgcurator/internal/model"
)

func TestCalibrate(t *testing.T) {
	gold := strings.Join([]string{
		`{"text_confidence":0.95,"knowledge_plausibility":0.9,"pattern_prior":0.8,"correct":true}`,
		`{"text_confidence":0.9,"knowledge_plausibility":0.85,"pattern_prior":0.7,"correct":true}`,
		`{"text_confidence":0.2,"knowledge_plausibility":0.1,"pattern_prior":0.5,"correct":false}`,
		`# comment`,
		``,
		`{"text_confidence":0.8,"knowledge_plausibility":0.2,"pattern_prior":0.5,"signals_conflict":true,"correct":false}`,
	}, "\n")

	var out bytes.Buffer
	ece, err := calibrate(&out, strings.NewReader(gold), model.DefaultConfig(), logging.Nop(), 10)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, ece, 0.0)
	assert.LessOrEqual(t, ece, 1.0)
	assert.Contains(t, out.String(), "4 samples")
	assert.Contains(t, out.String(), "ECE:")
}

func TestCalibrate_Errors(t *testing.T) {
	var out bytes.Buffer
	_, err := calibrate(&out, strings.NewReader(""), model.DefaultConfig(), logging.Nop(), 10)
	assert.Error(t, err)

	_, err = calibrate(&out, strings.NewReader("{broken"), model.DefaultConfig(), logging.Nop(), 10)
	assert.Error(t, err)
}
