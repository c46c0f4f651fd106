// Package pipeline implements the aggregation query engine: an explicit,
// ordered sequence of typed stages (match, lookup, project, group, sort,
// skip, limit) executed against in-memory collection snapshots. Pipelines
// are plain values, so join logic stays declarative and testable without a
// running store.
package pipeline

import (
	"fmt"
	"sort"
	"time"
)

// Doc is a single document flowing through a pipeline.
type Doc map[string]any

// Collection is an ordered set of documents.
type Collection []Doc

// Env maps collection names to their snapshots. Lookup stages resolve
// foreign collections through the env.
type Env map[string]Collection

// Stage transforms a document stream.
type Stage interface {
	run(env Env, docs []Doc) ([]Doc, error)
}

// Pipeline pairs a source collection with the stages applied to it.
type Pipeline struct {
	Source string
	Stages []Stage
}

// New builds a pipeline over the named source collection.
func New(source string, stages ...Stage) Pipeline {
	return Pipeline{Source: source, Stages: stages}
}

// Run executes the pipeline against the environment.
func (p Pipeline) Run(env Env) ([]Doc, error) {
	source, ok := env[p.Source]
	if !ok {
		return nil, fmt.Errorf("pipeline: unknown collection %q", p.Source)
	}
	docs := make([]Doc, len(source))
	copy(docs, source)
	var err error
	for _, stage := range p.Stages {
		docs, err = stage.run(env, docs)
		if err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// Match keeps documents satisfying the predicate.
type Match struct {
	Pred func(Doc) bool
}

func (m Match) run(_ Env, docs []Doc) ([]Doc, error) {
	if m.Pred == nil {
		return docs, nil
	}
	out := docs[:0:0]
	for _, doc := range docs {
		if m.Pred(doc) {
			out = append(out, doc)
		}
	}
	return out, nil
}

// MatchEq matches documents whose field equals value.
func MatchEq(field string, value any) Match {
	return Match{Pred: func(doc Doc) bool { return doc[field] == value }}
}

// Lookup joins each document against the From collection, storing matches
// under As. LocalField may hold a single value or an ordered []string; in
// the slice case the join preserves the reference order and silently skips
// dangling references. An optional sub-pipeline shapes the joined rows.
type Lookup struct {
	From         string
	LocalField   string
	ForeignField string
	As           string
	Pipeline     []Stage
}

func (l Lookup) run(env Env, docs []Doc) ([]Doc, error) {
	foreign, ok := env[l.From]
	if !ok {
		return nil, fmt.Errorf("pipeline: lookup references unknown collection %q", l.From)
	}
	index := make(map[any][]Doc, len(foreign))
	for _, doc := range foreign {
		key := doc[l.ForeignField]
		index[key] = append(index[key], doc)
	}

	out := make([]Doc, 0, len(docs))
	for _, doc := range docs {
		var matched []Doc
		switch local := doc[l.LocalField].(type) {
		case []string:
			for _, key := range local {
				matched = append(matched, index[key]...)
			}
		case nil:
			// absent local field joins nothing
		default:
			matched = append(matched, index[local]...)
		}

		if len(l.Pipeline) > 0 {
			var err error
			for _, stage := range l.Pipeline {
				matched, err = stage.run(env, matched)
				if err != nil {
					return nil, err
				}
			}
		}

		joined := make(Doc, len(doc)+1)
		for k, v := range doc {
			joined[k] = v
		}
		if matched == nil {
			matched = []Doc{}
		}
		joined[l.As] = matched
		out = append(out, joined)
	}
	return out, nil
}

// First replaces an array-valued field with its first element, or removes
// the field when the array is empty.
type First struct {
	Field string
}

func (f First) run(_ Env, docs []Doc) ([]Doc, error) {
	out := make([]Doc, 0, len(docs))
	for _, doc := range docs {
		updated := make(Doc, len(doc))
		for k, v := range doc {
			updated[k] = v
		}
		if arr, ok := doc[f.Field].([]Doc); ok {
			if len(arr) > 0 {
				updated[f.Field] = arr[0]
			} else {
				delete(updated, f.Field)
			}
		}
		out = append(out, updated)
	}
	return out, nil
}

// Project keeps only the listed fields.
type Project struct {
	Fields []string
}

func (p Project) run(_ Env, docs []Doc) ([]Doc, error) {
	out := make([]Doc, 0, len(docs))
	for _, doc := range docs {
		projected := make(Doc, len(p.Fields))
		for _, field := range p.Fields {
			if value, ok := doc[field]; ok {
				projected[field] = value
			}
		}
		out = append(out, projected)
	}
	return out, nil
}

// AccumOp selects how a Field accumulates across the group.
type AccumOp int

const (
	// AccumCount counts every document in the group.
	AccumCount AccumOp = iota
	// AccumSum sums the numeric Field across the group.
	AccumSum
	// AccumCondCount counts documents satisfying Cond.
	AccumCondCount
)

// Accum describes one grouped accumulator output field.
type Accum struct {
	As    string
	Op    AccumOp
	Field string
	Cond  func(Doc) bool
}

// Group collapses the stream into a single document of accumulator results.
// Like the store's native grouping, an empty input produces zero rows, not
// a zeroed row; callers default the result.
type Group struct {
	Accums []Accum
}

func (g Group) run(_ Env, docs []Doc) ([]Doc, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	result := make(Doc, len(g.Accums))
	for _, acc := range g.Accums {
		switch acc.Op {
		case AccumCount:
			result[acc.As] = int64(len(docs))
		case AccumSum:
			var sum int64
			for _, doc := range docs {
				n, err := asInt64(doc[acc.Field])
				if err != nil {
					return nil, fmt.Errorf("pipeline: sum %q: %w", acc.Field, err)
				}
				sum += n
			}
			result[acc.As] = sum
		case AccumCondCount:
			var count int64
			for _, doc := range docs {
				if acc.Cond != nil && acc.Cond(doc) {
					count++
				}
			}
			result[acc.As] = count
		default:
			return nil, fmt.Errorf("pipeline: unknown accumulator op %d", acc.Op)
		}
	}
	return []Doc{result}, nil
}

// Sort orders documents by a field. Values must be mutually comparable
// strings, integers, floats, or times.
type Sort struct {
	Field string
	Desc  bool
}

func (s Sort) run(_ Env, docs []Doc) ([]Doc, error) {
	out := make([]Doc, len(docs))
	copy(out, docs)
	sort.SliceStable(out, func(i, j int) bool {
		c := compare(out[i][s.Field], out[j][s.Field])
		if s.Desc {
			return c > 0
		}
		return c < 0
	})
	return out, nil
}

// Skip drops the first N documents.
type Skip struct {
	N int
}

func (s Skip) run(_ Env, docs []Doc) ([]Doc, error) {
	if s.N <= 0 {
		return docs, nil
	}
	if s.N >= len(docs) {
		return nil, nil
	}
	return docs[s.N:], nil
}

// Limit keeps at most N documents.
type Limit struct {
	N int
}

func (l Limit) run(_ Env, docs []Doc) ([]Doc, error) {
	if l.N < 0 {
		return docs, nil
	}
	if l.N < len(docs) {
		return docs[:l.N], nil
	}
	return docs, nil
}

// Count replaces the stream with a single {As: n} document.
type Count struct {
	As string
}

func (c Count) run(_ Env, docs []Doc) ([]Doc, error) {
	return []Doc{{c.As: int64(len(docs))}}, nil
}

func asInt64(value any) (int64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("value %T is not numeric", value)
	}
}

func compare(a, b any) int {
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case int64:
		bv, _ := b.(int64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case float64:
		bv, _ := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case time.Time:
		bv, _ := b.(time.Time)
		switch {
		case av.Before(bv):
			return -1
		case av.After(bv):
			return 1
		}
		return 0
	case nil:
		if b == nil {
			return 0
		}
		return -1
	default:
		return 0
	}
}
