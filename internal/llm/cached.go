package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ppiankov/kgcurator/internal/cache"
	"github.com/ppiankov/kgcurator/internal/logging"
)

// CachedScorer remembers scoring answers per batch so a rerun over the
// same candidates sees the same signals. Batches are keyed by their content
// without candidate ids, which are fresh on every extraction.
type CachedScorer struct {
	next      Scorer
	cache     cache.Cache
	namespace string
	ttl       time.Duration
	log       *logging.Logger
}

// cachedScores is the stored form of a ScoreResult; each record points at
// the item it answers by position
type cachedScores struct {
	Records   []cachedRecord `json:"records"`
	Malformed int            `json:"malformed,omitempty"`
}

type cachedRecord struct {
	Item int `json:"item"`
	ScoreRecord
}

// NewCachedScorer wraps next; namespace should name the provider and model
func NewCachedScorer(next Scorer, c cache.Cache, namespace string, ttl time.Duration, log *logging.Logger) *CachedScorer {
	return &CachedScorer{
		next:      next,
		cache:     c,
		namespace: namespace,
		ttl:       ttl,
		log:       logging.OrNop(log),
	}
}

// Score returns a cached answer for a batch with the same content or asks
// next
func (s *CachedScorer) Score(ctx context.Context, items []ScoreItem) (ScoreResult, error) {
	anon := make([]ScoreItem, len(items))
	for i, item := range items {
		item.CandidateUID = ""
		anon[i] = item
	}
	payload, err := json.Marshal(anon)
	if err != nil {
		return s.next.Score(ctx, items)
	}
	key := cache.Key("score.v2", s.namespace, string(payload))

	if data, ok := s.cache.Get(key); ok {
		var cached cachedScores
		if err := json.Unmarshal(data, &cached); err == nil {
			s.log.Debug("score cache hit", "items", len(items))
			return restore(cached, items), nil
		}
		_ = s.cache.Delete(key)
	}

	result, err := s.next.Score(ctx, items)
	if err != nil {
		return result, err
	}

	if data, err := json.Marshal(positional(result, items)); err == nil {
		if err := s.cache.Set(key, data, s.ttl); err != nil {
			s.log.Warn("score cache write failed", "error", err)
		}
	}
	return result, nil
}

// positional maps records to item positions; records for unknown
// candidates are not kept
func positional(result ScoreResult, items []ScoreItem) cachedScores {
	index := make(map[string]int, len(items))
	for i, item := range items {
		if _, ok := index[item.CandidateUID]; !ok {
			index[item.CandidateUID] = i
		}
	}
	out := cachedScores{Malformed: result.Malformed}
	for _, r := range result.Records {
		i, ok := index[r.CandidateUID]
		if !ok {
			continue
		}
		r.CandidateUID = ""
		out.Records = append(out.Records, cachedRecord{Item: i, ScoreRecord: r})
	}
	return out
}

func restore(cached cachedScores, items []ScoreItem) ScoreResult {
	out := ScoreResult{Malformed: cached.Malformed}
	for _, r := range cached.Records {
		if r.Item < 0 || r.Item >= len(items) {
			continue
		}
		rec := r.ScoreRecord
		rec.CandidateUID = items[r.Item].CandidateUID
		out.Records = append(out.Records, rec)
	}
	return out
}
