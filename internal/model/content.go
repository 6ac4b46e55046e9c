package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ContentKind tags the variant a ContentValue holds.
type ContentKind int

const (
	KindNull ContentKind = iota
	KindString
	KindNumber
	KindBool
	KindTimestamp
	KindList
	KindMap
)

// ContentValue is a JSON-shaped sum type used in place of an untyped
// interface{} bag: {string | number | boolean | timestamp | list |
// nested-mapping | null}.
type ContentValue struct {
	Kind ContentKind
	Str  string
	Num  float64
	Bool bool
	Time time.Time
	List []ContentValue
	Map  Content
}

// Content is the open, string-keyed mapping used for RecordCandidate.Content
// and Metadata.Extra.
type Content map[string]ContentValue

// String wraps a string as a ContentValue.
func String(s string) ContentValue { return ContentValue{Kind: KindString, Str: s} }

// Number wraps a float64 as a ContentValue.
func Number(n float64) ContentValue { return ContentValue{Kind: KindNumber, Num: n} }

// Bool wraps a bool as a ContentValue.
func Bool(b bool) ContentValue { return ContentValue{Kind: KindBool, Bool: b} }

// Timestamp wraps a time.Time as a ContentValue.
func Timestamp(t time.Time) ContentValue { return ContentValue{Kind: KindTimestamp, Time: t.UTC()} }

// List wraps a slice of ContentValue as a ContentValue.
func List(items ...ContentValue) ContentValue { return ContentValue{Kind: KindList, List: items} }

// Map wraps a nested Content mapping as a ContentValue.
func Map(m Content) ContentValue { return ContentValue{Kind: KindMap, Map: m} }

// Null is the ContentValue representing JSON null.
var Null = ContentValue{Kind: KindNull}

// MarshalJSON renders the ContentValue as the matching native JSON shape.
func (v ContentValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.Str)
	case KindNumber:
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindTimestamp:
		return json.Marshal(v.Time.UTC().Format(time.RFC3339Nano))
	case KindList:
		return json.Marshal(v.List)
	case KindMap:
		return json.Marshal(v.Map)
	default:
		return nil, fmt.Errorf("model: unknown ContentValue kind %d", v.Kind)
	}
}

// UnmarshalJSON parses a native JSON value into the matching ContentValue
// variant. Timestamps are recovered heuristically: a string that parses
// as RFC3339 becomes KindTimestamp, otherwise it stays KindString.
func (v *ContentValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = fromAny(raw)
	return nil
}

func fromAny(raw any) ContentValue {
	switch x := raw.(type) {
	case nil:
		return Null
	case string:
		if t, err := time.Parse(time.RFC3339Nano, x); err == nil {
			return Timestamp(t)
		}
		return String(x)
	case float64:
		return Number(x)
	case bool:
		return Bool(x)
	case []any:
		items := make([]ContentValue, len(x))
		for i, item := range x {
			items[i] = fromAny(item)
		}
		return ContentValue{Kind: KindList, List: items}
	case map[string]any:
		m := make(Content, len(x))
		for k, item := range x {
			m[k] = fromAny(item)
		}
		return Map(m)
	default:
		return Null
	}
}

// CanonicalString renders v deterministically regardless of how a
// decoder ordered its underlying map, so ContentHash is stable under
// field-order permutation.
func (v ContentValue) CanonicalString() string {
	var b strings.Builder
	v.writeCanonical(&b)
	return b.String()
}

// Equal reports deep equality of two ContentValues. ContentValue holds
// list and map variants, so == is not defined on it; comparison goes
// through the canonical rendering instead.
func (v ContentValue) Equal(o ContentValue) bool {
	return v.CanonicalString() == o.CanonicalString()
}

func (v ContentValue) writeCanonical(b *strings.Builder) {
	switch v.Kind {
	case KindNull:
		b.WriteString("null")
	case KindString:
		b.WriteString(strconv.Quote(v.Str))
	case KindNumber:
		b.WriteString(strconv.FormatFloat(v.Num, 'g', -1, 64))
	case KindBool:
		b.WriteString(strconv.FormatBool(v.Bool))
	case KindTimestamp:
		b.WriteString(strconv.Quote(v.Time.UTC().Format(time.RFC3339Nano)))
	case KindList:
		b.WriteByte('[')
		for i, item := range v.List {
			if i > 0 {
				b.WriteByte(',')
			}
			item.writeCanonical(b)
		}
		b.WriteByte(']')
	case KindMap:
		b.WriteByte('{')
		v.Map.writeCanonical(b)
		b.WriteByte('}')
	}
}

// CanonicalString renders the content map deterministically: keys sorted
// ascending, nested maps recursively canonicalized, the whole wrapped in
// braces as a nested map is. This is the basis for
// RecordCandidate.ComputeContentHash.
func (c Content) CanonicalString() string {
	var b strings.Builder
	b.WriteByte('{')
	c.writeCanonical(&b)
	b.WriteByte('}')
	return b.String()
}

func (c Content) writeCanonical(b *strings.Builder) {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(k))
		b.WriteByte(':')
		c[k].writeCanonical(b)
	}
}
