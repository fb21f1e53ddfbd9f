package model

import "time"

// Config is the explicit, versioned configuration passed into every
// component at construction. A rule or coefficient update is a new Config
// with a new Version; a Config is never mutated once curation starts.
type Config struct {
	Version      string              `yaml:"version"`
	Rules        map[string]TypeRule `yaml:"rules"`
	RulesFile    string              `yaml:"rules_file,omitempty"` // replaces rules when set
	Calibration  CalibrationConfig   `yaml:"calibration"`
	Priors       PriorConfig         `yaml:"priors"`
	Pipeline     PipelineConfig      `yaml:"pipeline"`
	Scoring      ScoringConfig       `yaml:"scoring"`
	RateLimiting RateLimitingConfig  `yaml:"rate_limiting"`
	Concurrency  ConcurrencyConfig   `yaml:"concurrency"`
	LLM          LLMConfig           `yaml:"llm"`
	Documents    DocumentsConfig     `yaml:"documents"`
	Storage      StorageConfig       `yaml:"storage"`
	QualityGate  QualityGateConfig   `yaml:"quality_gate"`
	Output       OutputConfig        `yaml:"output"`
}

// TypeRule lists the entity types a predicate accepts in each slot
type TypeRule struct {
	Source []string `yaml:"source"`
	Target []string `yaml:"target"`
}

// CalibrationConfig holds the frozen logistic coefficients
type CalibrationConfig struct {
	Mode      string  `yaml:"mode"` // logistic (default) or mean (legacy)
	B0        float64 `yaml:"b0"`
	WText     float64 `yaml:"w_text"`
	WKnow     float64 `yaml:"w_know"`
	WPrior    float64 `yaml:"w_prior"`
	WConflict float64 `yaml:"w_conflict"`
}

// PriorConfig holds historical predicate frequency priors
type PriorConfig struct {
	Default    float64            `yaml:"default"`
	Predicates map[string]float64 `yaml:"predicates"`
}

// PipelineConfig configures the postprocessing modules
type PipelineConfig struct {
	PreviousSentenceChars int                `yaml:"previous_sentence_chars"` // look-back for the previous-sentence scope
	ParagraphChars        int                `yaml:"paragraph_chars"`         // look-around for the paragraph scope
	VaguePatterns         []string           `yaml:"vague_patterns"`
	ListConjunctions      []string           `yaml:"list_conjunctions"`
	PredicateAliases      map[string]string  `yaml:"predicate_aliases"`
	ConfidenceThreshold   float64            `yaml:"confidence_threshold"` // 0 disables the filter
	FlagThresholds        map[string]float64 `yaml:"flag_thresholds"`
	LowConfidenceFlag     float64            `yaml:"low_confidence_flag"` // kept below this get LOW_CONFIDENCE
	NormativeMode         string             `yaml:"normative_mode,omitempty"` // keep (default), flag or drop
}

// ScoringConfig controls batching of the scoring collaborator
type ScoringConfig struct {
	BatchSize      int           `yaml:"batch_size"`
	MaxRetries     int           `yaml:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
}

// RateLimitingConfig throttles collaborator calls
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`

	// PerCollaborator overrides the shared rate for one limiter key
	// ("extractor", "fixture", or the scorer name)
	PerCollaborator map[string]CollaboratorRate `yaml:"per_collaborator,omitempty"`
}

// CollaboratorRate is one key's token bucket
type CollaboratorRate struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

// ConcurrencyConfig controls document-parallel curation
type ConcurrencyConfig struct {
	Workers int `yaml:"workers"`
}

// LLMConfig configures the extraction and scoring collaborators
type LLMConfig struct {
	Provider  string `yaml:"provider"` // openai, anthropic, or "" for fixture files
	Model     string `yaml:"model"`
	APIKey    string `yaml:"-"`
	BaseURL   string `yaml:"base_url,omitempty"`
	Timeout   int    `yaml:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens"`

	HTTPProxy  string `yaml:"http_proxy,omitempty"`
	HTTPSProxy string `yaml:"https_proxy,omitempty"`
	NoProxy    string `yaml:"no_proxy,omitempty"`
}

// DocumentsConfig configures the file-backed document store
type DocumentsConfig struct {
	Dir      string        `yaml:"dir"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// StorageConfig configures the persisted relationship store
type StorageConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// QualityGateConfig holds the soft quality thresholds
type QualityGateConfig struct {
	MinEvidenceRatio float64 `yaml:"min_evidence_ratio"`
}

// OutputConfig controls logging and report output
type OutputConfig struct {
	Verbose bool   `yaml:"verbose"`
	LogMode string `yaml:"log_mode"` // dev or prod
	Dir     string `yaml:"dir"`
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return &Config{
		Version: "2026.10-1",
		Rules: map[string]TypeRule{
			"works_at":   {Source: []string{"Person"}, Target: []string{"Organization"}},
			"founded":    {Source: []string{"Person", "Organization"}, Target: []string{"Organization"}},
			"located_in": {Source: []string{"Place", "Organization"}, Target: []string{"Place"}},
			"authored":   {Source: []string{"Person", "Organization"}, Target: []string{"Work"}},
			"born_in":    {Source: []string{"Person"}, Target: []string{"Place"}},
			"member_of":  {Source: []string{"Person", "Organization"}, Target: []string{"Organization"}},
			"produces":   {Source: []string{"Organization", "Person", "Process"}, Target: []string{"Product", "Concept"}},
		},
		Calibration: CalibrationConfig{
			Mode:      "logistic",
			B0:        -3.0,
			WText:     2.5,
			WKnow:     3.0,
			WPrior:    1.0,
			WConflict: -2.0,
		},
		Priors: PriorConfig{
			Default: 0.5,
			Predicates: map[string]float64{
				"works_at":   0.7,
				"located_in": 0.8,
				"founded":    0.6,
				"authored":   0.75,
			},
		},
		Pipeline: PipelineConfig{
			PreviousSentenceChars: 300,
			ParagraphChars:        1200,
			VaguePatterns: []string{
				"he", "she", "it", "they", "we", "i", "you", "him", "her", "them", "us",
				"this", "that", "these", "those", "something", "someone", "somebody",
				"everything", "everyone", "anything", "nothing",
				"the answer", "the way", "the thing", "the things", "the idea",
				"the process", "the approach", "the situation", "the problem",
				"this approach", "this process", "this idea", "this way",
				"the company", "the organization", "the book", "the author",
				"the community", "the project", "the people",
			},
			ListConjunctions: []string{"and", "&", "as well as"},
			PredicateAliases: map[string]string{
				"is located in":     "located_in",
				"is based in":       "located_in",
				"is employed by":    "works_at",
				"works for":         "works_at",
				"was founded by":    "founded_by",
				"is the founder of": "founded",
				"wrote":             "authored",
				"is the author of":  "authored",
				"is a member of":    "member_of",
			},
			ConfidenceThreshold: 0,
			FlagThresholds:      map[string]float64{},
			LowConfidenceFlag:   0.5,
		},
		Scoring: ScoringConfig{
			BatchSize:      50,
			MaxRetries:     3,
			InitialBackoff: time.Second,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2.0,
			BurstSize:         4,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		LLM: LLMConfig{
			Provider:  "",
			Model:     "",
			Timeout:   60,
			MaxTokens: 4000,
		},
		Documents: DocumentsConfig{
			Dir:      "./documents",
			CacheTTL: 30 * time.Minute,
		},
		Storage: StorageConfig{
			Enabled: false,
			Path:    "./kgcurator.db",
		},
		QualityGate: QualityGateConfig{
			MinEvidenceRatio: 0.95,
		},
		Output: OutputConfig{
			LogMode: "dev",
			Dir:     "./kgcurator-output",
		},
	}
}
