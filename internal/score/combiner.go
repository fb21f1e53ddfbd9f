package score

import (
	"fmt"
	"math"

	"github.com/ppiankov/kgcurator/internal/logging"
	"github.com/ppiankov/kgcurator/internal/model"
)

const (
	// ModeLogistic combines signals with frozen logistic coefficients
	ModeLogistic = "logistic"
	// ModeMean is the legacy (text+knowledge)/2 average
	ModeMean = "mean"

	// pEpsilon keeps p_true strictly inside (0,1)
	pEpsilon = 1e-6
)

// Signals are the independent inputs for one relationship. Pointers make a
// missing signal distinguishable from a zero score.
type Signals struct {
	TextConfidence        *float64
	KnowledgePlausibility *float64
	PatternPrior          *float64
	Conflict              bool
}

// MissingSignalError reports a signal the scoring collaborator never supplied
type MissingSignalError struct {
	Signal string
}

func (e *MissingSignalError) Error() string {
	return fmt.Sprintf("missing signal: %s", e.Signal)
}

// Breakdown is a transparent record of one combination
type Breakdown struct {
	Inputs  map[string]float64 `json:"inputs"`
	Clamped []string           `json:"clamped,omitempty"`
	Z       float64            `json:"z"`
	PTrue   float64            `json:"p_true"`
	Formula string             `json:"formula"`
}

// Combiner merges text confidence, knowledge plausibility and a pattern
// prior into one calibrated probability. Deterministic arithmetic only: no
// online learning.
type Combiner struct {
	coef model.CalibrationConfig
	log  *logging.Logger
}

// NewCombiner creates a combiner over frozen coefficients
func NewCombiner(coef model.CalibrationConfig, log *logging.Logger) *Combiner {
	if coef.Mode == "" {
		coef.Mode = ModeLogistic
	}
	return &Combiner{
		coef: coef,
		log:  logging.OrNop(log).With("component", "combiner"),
	}
}

// Combine returns p_true in (0,1)
func (c *Combiner) Combine(s Signals) (float64, error) {
	b, err := c.Explain(s)
	if err != nil {
		return 0, err
	}
	return b.PTrue, nil
}

// Explain combines the signals and returns the full breakdown
func (c *Combiner) Explain(s Signals) (Breakdown, error) {
	b := Breakdown{Inputs: make(map[string]float64, 4)}

	text, err := c.input("text_confidence", s.TextConfidence, &b)
	if err != nil {
		return Breakdown{}, err
	}
	know, err := c.input("knowledge_plausibility", s.KnowledgePlausibility, &b)
	if err != nil {
		return Breakdown{}, err
	}
	prior, err := c.input("pattern_prior", s.PatternPrior, &b)
	if err != nil {
		return Breakdown{}, err
	}

	conflict := 0.0
	if s.Conflict {
		conflict = 1.0
	}
	b.Inputs["conflict"] = conflict

	switch c.coef.Mode {
	case ModeMean:
		b.PTrue = clampOpen((text + know) / 2)
		b.Formula = "(text_confidence + knowledge_plausibility) / 2"
	default:
		b.Z = c.coef.B0 +
			c.coef.WText*text +
			c.coef.WKnow*know +
			c.coef.WPrior*prior +
			c.coef.WConflict*conflict
		b.PTrue = clampOpen(sigmoid(b.Z))
		b.Formula = fmt.Sprintf("1 / (1 + e^-(%.3f + %.3f*text + %.3f*know + %.3f*prior + %.3f*conflict))",
			c.coef.B0, c.coef.WText, c.coef.WKnow, c.coef.WPrior, c.coef.WConflict)
	}

	return b, nil
}

// input validates one signal, clamping out-of-range values with a warning
func (c *Combiner) input(name string, v *float64, b *Breakdown) (float64, error) {
	if v == nil || math.IsNaN(*v) {
		return 0, &MissingSignalError{Signal: name}
	}

	val := *v
	if val < 0 || val > 1 {
		clamped := math.Max(0, math.Min(1, val))
		c.log.Warn("signal out of range, clamped", "signal", name, "value", val, "clamped", clamped)
		b.Clamped = append(b.Clamped, name)
		val = clamped
	}

	b.Inputs[name] = val
	return val, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func clampOpen(p float64) float64 {
	return math.Max(pEpsilon, math.Min(1-pEpsilon, p))
}

// Float returns a pointer to v, for building Signals
func Float(v float64) *float64 {
	return &v
}
