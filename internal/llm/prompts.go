package llm

import (
	"bytes"
	"fmt"
	"text/template"
)

const scoreSystem = "You judge candidate knowledge-graph relationships. Answer with JSON lines only."

const scorePromptTemplate = `For each candidate relationship below, give two independent judgements:
- text_confidence: how clearly the evidence text states the relationship (0 to 1)
- knowledge_plausibility: how plausible the relationship is from general knowledge alone (0 to 1)
If the two judgements disagree strongly, set signals_conflict to true and explain why in conflict_explanation.
If source and target look swapped, put the corrected triple in suggested_correction.

Return exactly one JSON object per line, one line per candidate, with keys:
candidate_uid, text_confidence, knowledge_plausibility, signals_conflict, conflict_explanation, suggested_correction

Candidates:
{{range .}}{{json .}}
{{end}}`

const extractSystem = "You extract knowledge-graph relationships from text. Answer with JSON lines only."

const extractPromptTemplate = `Extract factual relationships from the text below.
Return one JSON object per line with keys: source, predicate, target, source_surface, target_surface, evidence_span.
evidence_span is {"start_char": N, "end_char": M}, character offsets into the text below covering the sentence that states the relationship.
Use short snake_case predicates (works_at, located_in, founded, authored).
Do not invent relationships that the text does not state.

Text:
{{.}}`

var (
	scorePrompt   = template.Must(template.New("score").Funcs(template.FuncMap{"json": toJSON}).Parse(scorePromptTemplate))
	extractPrompt = template.Must(template.New("extract").Parse(extractPromptTemplate))
)

func renderPrompt(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
