package llm

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/kgcurator/internal/model"
)

// ErrMalformedRecord marks a collaborator output line that could not be used
var ErrMalformedRecord = errors.New("malformed record")

// LineError reports a skipped line
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return ErrMalformedRecord }

const maxLineBytes = 1 << 20

// ParseScoreLines parses one JSON record per line. Bad lines are skipped
// and returned as errors; they never fail the batch.
func ParseScoreLines(raw string) (ScoreResult, []error) {
	var result ScoreResult
	errs := eachLine(raw, func(line []byte) error {
		var rec ScoreRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return err
		}
		rec.CandidateUID = strings.TrimSpace(rec.CandidateUID)
		if rec.CandidateUID == "" {
			return errors.New("missing candidate_uid")
		}
		result.Records = append(result.Records, rec)
		return nil
	})
	result.Malformed = len(errs)
	return result, errs
}

// ParseCandidateLines parses one candidate per line
func ParseCandidateLines(raw string) (ExtractResult, []error) {
	var result ExtractResult
	errs := eachLine(raw, func(line []byte) error {
		var c model.Candidate
		if err := json.Unmarshal(line, &c); err != nil {
			return err
		}
		if strings.TrimSpace(c.Source) == "" || strings.TrimSpace(c.Predicate) == "" || strings.TrimSpace(c.Target) == "" {
			return errors.New("missing source, predicate or target")
		}
		result.Candidates = append(result.Candidates, c)
		return nil
	})
	result.Malformed = len(errs)
	return result, errs
}

// eachLine feeds every non-empty line to fn. A response that is a single
// JSON array is accepted too and treated as one record per element.
func eachLine(raw string, fn func([]byte) error) []error {
	cleaned := stripCodeFence(strings.TrimSpace(raw))
	if strings.HasPrefix(cleaned, "[") {
		var arr []json.RawMessage
		if err := json.Unmarshal([]byte(cleaned), &arr); err == nil {
			var errs []error
			for i, elem := range arr {
				if err := fn(elem); err != nil {
					errs = append(errs, &LineError{Line: i + 1, Err: err})
				}
			}
			return errs
		}
	}

	var errs []error
	scanner := bufio.NewScanner(strings.NewReader(cleaned))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		line = strings.TrimSuffix(line, ",")
		if err := fn([]byte(line)); err != nil {
			errs = append(errs, &LineError{Line: n, Err: err})
		}
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, &LineError{Line: n + 1, Err: err})
	}
	return errs
}

// stripCodeFence removes markdown code block wrappers (```json ... ```)
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	lines = lines[1:]
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
