package core

import (
	"fmt"
	"strings"
	"time"
)

// Canonical attribute paths shared by the compiler and the stores.
const (
	AttrNamespace = "namespace"
	AttrID        = "id"
	AttrCreatedAt = "__createdAt"
	AttrStatus    = "status"
	AttrMetadata  = "metadata"
)

// TimeLayout is the fixed-width ISO-8601 rendering used for the sort index.
// Millisecond precision with a zero-padded fraction keeps lexicographic
// order aligned with chronological order.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

func FormatLogTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func ParseLogTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339, strings.TrimSpace(value))
}

type PredicateKind string

const (
	PredicateEquals  PredicateKind = "equals"
	PredicatePrefix  PredicateKind = "prefix"
	PredicateBetween PredicateKind = "between"
)

// Predicate is the structured form of one compiled constraint. Stores that
// speak another query language render these instead of the DynamoDB-style
// expression strings.
type Predicate struct {
	Kind   PredicateKind
	Path   []string
	Values []any
	Key    bool
}

// QueryPlan is the compiled form of a FetchLogsInput: a key condition that
// narrows the index scan, a residual filter evaluated after items are read,
// and placeholder maps rendered with the #name/:value sigil scheme. The
// ordered Predicates list carries the same constraints structurally.
type QueryPlan struct {
	IndexName    string
	KeyCondition string
	Filter       string
	Names        map[string]string
	Values       map[string]any
	Predicates   []Predicate
	Limit        int
	ScanForward  bool
	StartKey     Cursor
}

// CreatedAtIndexName is the default secondary index ordered by
// (namespace, __createdAt); overridable at the store layer.
const CreatedAtIndexName = "namespace-createdAt-index"

// CompileQuery turns a logical filter description into a query plan. Two
// mutually exclusive modes: id-lookup when an id or id-prefix selector is
// present (time range demoted to the filter), range-scan over the createdAt
// index otherwise (time range promoted into the key condition). Predicate
// order is fixed so identical input compiles to identical output: time range
// first when in filter position, metadata equalities in caller order, status
// last.
func CompileQuery(in FetchLogsInput) QueryPlan {
	in = in.WithDefaults()
	builder := newPlanBuilder()

	plan := QueryPlan{
		Limit:       in.Limit,
		ScanForward: !in.Desc,
		StartKey:    in.StartKey.Clone(),
	}

	keyParts := []string{builder.equals(true, in.Namespace, AttrNamespace)}

	idLookup := in.ID != "" || in.IDPrefix != ""
	if idLookup {
		if in.ID != "" {
			keyParts = append(keyParts, builder.equals(true, in.ID, AttrID))
		} else {
			keyParts = append(keyParts, builder.prefix(true, in.IDPrefix, AttrID))
		}
	} else {
		plan.IndexName = CreatedAtIndexName
		if in.From != nil && in.To != nil {
			keyParts = append(keyParts, builder.between(true, *in.From, *in.To, AttrCreatedAt))
		}
	}

	var filterParts []string
	if idLookup && in.From != nil && in.To != nil {
		filterParts = append(filterParts, builder.between(false, *in.From, *in.To, AttrCreatedAt))
	}
	for _, filter := range in.Metadata {
		filterParts = append(filterParts, builder.equals(false, filter.Value, AttrMetadata, filter.Key))
	}
	if in.Status != "" {
		filterParts = append(filterParts, builder.equals(false, string(in.Status), AttrStatus))
	}

	plan.KeyCondition = strings.Join(keyParts, " AND ")
	plan.Filter = strings.Join(filterParts, " AND ")
	plan.Names = builder.names
	plan.Values = builder.values
	plan.Predicates = builder.predicates
	return plan
}

// planBuilder allocates placeholder tokens in encounter order. Every
// referenced attribute name and literal value gets its own token, so
// reserved words in the underlying query language can never collide.
type planBuilder struct {
	names      map[string]string
	values     map[string]any
	predicates []Predicate
	nameSeq    int
	valueSeq   int
}

func newPlanBuilder() *planBuilder {
	return &planBuilder{
		names:  map[string]string{},
		values: map[string]any{},
	}
}

func (b *planBuilder) equals(key bool, value any, path ...string) string {
	rendered := b.renderPath(path)
	token := b.addValue(value)
	b.predicates = append(b.predicates, Predicate{
		Kind:   PredicateEquals,
		Path:   path,
		Values: []any{value},
		Key:    key,
	})
	return fmt.Sprintf("%s = %s", rendered, token)
}

func (b *planBuilder) prefix(key bool, value string, path ...string) string {
	rendered := b.renderPath(path)
	token := b.addValue(value)
	b.predicates = append(b.predicates, Predicate{
		Kind:   PredicatePrefix,
		Path:   path,
		Values: []any{value},
		Key:    key,
	})
	return fmt.Sprintf("begins_with(%s, %s)", rendered, token)
}

func (b *planBuilder) between(key bool, from, to time.Time, path ...string) string {
	rendered := b.renderPath(path)
	fromValue := FormatLogTime(from)
	toValue := FormatLogTime(to)
	fromToken := b.addValue(fromValue)
	toToken := b.addValue(toValue)
	b.predicates = append(b.predicates, Predicate{
		Kind:   PredicateBetween,
		Path:   path,
		Values: []any{fromValue, toValue},
		Key:    key,
	})
	return fmt.Sprintf("%s BETWEEN %s AND %s", rendered, fromToken, toToken)
}

func (b *planBuilder) renderPath(segments []string) string {
	tokens := make([]string, 0, len(segments))
	for _, segment := range segments {
		tokens = append(tokens, b.addName(segment))
	}
	return strings.Join(tokens, ".")
}

func (b *planBuilder) addName(attribute string) string {
	token := fmt.Sprintf("#n%d", b.nameSeq)
	b.nameSeq++
	b.names[token] = attribute
	return token
}

func (b *planBuilder) addValue(value any) string {
	token := fmt.Sprintf(":v%d", b.valueSeq)
	b.valueSeq++
	b.values[token] = value
	return token
}
