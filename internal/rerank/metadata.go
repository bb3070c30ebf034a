package rerank

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"
)

// MetadataReranker scores candidates by recency (exponential decay from
// Candidate.CreatedAt) combined with a configurable source priority
// (longest-matching path-prefix weight). It has no query dependence: query
// is accepted for interface conformance but otherwise unused, matching
// spec.md §4.5's description of this strategy as metadata-only.
type MetadataReranker struct {
	halfLife       time.Duration
	sourcePriority map[string]float64
	now            func() time.Time
}

var _ Reranker = (*MetadataReranker)(nil)

// NewMetadataReranker creates a metadata reranker. halfLife controls how
// quickly recency score decays; sourcePriority maps a path prefix to a
// multiplier in [0,2] (1.0 is neutral).
func NewMetadataReranker(halfLife time.Duration, sourcePriority map[string]float64) *MetadataReranker {
	if halfLife <= 0 {
		halfLife = 30 * 24 * time.Hour
	}
	return &MetadataReranker{
		halfLife:       halfLife,
		sourcePriority: sourcePriority,
		now:            time.Now,
	}
}

func (m *MetadataReranker) Rerank(_ context.Context, _ string, candidates []Candidate) ([]Candidate, error) {
	if len(candidates) == 0 {
		return []Candidate{}, nil
	}

	now := m.now()
	scored := make([]Candidate, len(candidates))
	for i, c := range candidates {
		recency := m.recencyScore(now, c.CreatedAt)
		priority := m.priorityWeight(c.Source)
		c.Score = clamp01(recency * priority)
		scored[i] = c
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return scored, nil
}

// recencyScore decays to 0.5 after halfLife, following the standard
// exponential half-life formula. A zero CreatedAt (unknown timestamp)
// scores neutrally at 0.5 rather than being penalized as infinitely old.
func (m *MetadataReranker) recencyScore(now, createdAt time.Time) float64 {
	if createdAt.IsZero() {
		return 0.5
	}
	age := now.Sub(createdAt)
	if age < 0 {
		age = 0
	}
	return math.Pow(0.5, age.Seconds()/m.halfLife.Seconds())
}

// priorityWeight returns the longest matching path-prefix weight, or 1.0
// (neutral) when no prefix matches. Clamped to [0,2] per RerankConfig's
// documented range so a misconfigured weight cannot invert scoring.
func (m *MetadataReranker) priorityWeight(source string) float64 {
	best := -1
	weight := 1.0
	for prefix, w := range m.sourcePriority {
		if strings.HasPrefix(source, prefix) && len(prefix) > best {
			best = len(prefix)
			weight = w
		}
	}
	if weight < 0 {
		weight = 0
	}
	if weight > 2 {
		weight = 2
	}
	return weight
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (m *MetadataReranker) Available(_ context.Context) bool { return true }

func (m *MetadataReranker) Close() error { return nil }
