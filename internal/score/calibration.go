package score

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
)

// Sample pairs a predicted probability with its gold label
type Sample struct {
	PTrue   float64
	Correct bool
}

// Bucket is one bin of a reliability diagram
type Bucket struct {
	Lower    float64 `json:"lower"`
	Upper    float64 `json:"upper"`
	Count    int     `json:"count"`
	MeanP    float64 `json:"mean_p"`
	Accuracy float64 `json:"accuracy"`
}

// Gap returns |accuracy - mean p|
func (b Bucket) Gap() float64 {
	return math.Abs(b.Accuracy - b.MeanP)
}

// ReliabilityBuckets bins samples into n equal-width buckets over [0,1]
func ReliabilityBuckets(samples []Sample, n int) []Bucket {
	if n <= 0 {
		n = 10
	}

	buckets := make([]Bucket, n)
	sums := make([]float64, n)
	correct := make([]int, n)
	width := 1.0 / float64(n)

	for i := range buckets {
		buckets[i].Lower = float64(i) * width
		buckets[i].Upper = float64(i+1) * width
	}

	for _, s := range samples {
		idx := int(s.PTrue * float64(n))
		if idx >= n {
			idx = n - 1
		}
		if idx < 0 {
			idx = 0
		}
		buckets[idx].Count++
		sums[idx] += s.PTrue
		if s.Correct {
			correct[idx]++
		}
	}

	for i := range buckets {
		if buckets[i].Count == 0 {
			continue
		}
		buckets[i].MeanP = sums[i] / float64(buckets[i].Count)
		buckets[i].Accuracy = float64(correct[i]) / float64(buckets[i].Count)
	}

	return buckets
}

// ExpectedCalibrationError is the count-weighted mean bucket gap
func ExpectedCalibrationError(samples []Sample, n int) float64 {
	if len(samples) == 0 {
		return 0
	}

	ece := 0.0
	for _, b := range ReliabilityBuckets(samples, n) {
		if b.Count == 0 {
			continue
		}
		ece += float64(b.Count) / float64(len(samples)) * b.Gap()
	}
	return ece
}

// LabeledSignals is one line of a gold evaluation set
type LabeledSignals struct {
	TextConfidence        float64 `json:"text_confidence"`
	KnowledgePlausibility float64 `json:"knowledge_plausibility"`
	PatternPrior          float64 `json:"pattern_prior"`
	SignalsConflict       bool    `json:"signals_conflict"`
	Correct               bool    `json:"correct"`
}

// LoadLabeled reads a JSON-lines gold set, skipping blank lines
func LoadLabeled(r io.Reader) ([]LabeledSignals, error) {
	var out []LabeledSignals
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var ls LabeledSignals
		if err := json.Unmarshal([]byte(text), &ls); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, ls)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan gold set: %w", err)
	}
	return out, nil
}

// Evaluate scores a gold set with the combiner
func Evaluate(c *Combiner, gold []LabeledSignals) ([]Sample, error) {
	samples := make([]Sample, 0, len(gold))
	for i, g := range gold {
		p, err := c.Combine(Signals{
			TextConfidence:        Float(g.TextConfidence),
			KnowledgePlausibility: Float(g.KnowledgePlausibility),
			PatternPrior:          Float(g.PatternPrior),
			Conflict:              g.SignalsConflict,
		})
		if err != nil {
			return nil, fmt.Errorf("gold row %d: %w", i, err)
		}
		samples = append(samples, Sample{PTrue: p, Correct: g.Correct})
	}
	return samples, nil
}
