package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/oarkflow/convert"
	"github.com/oarkflow/date"
)

// GeometryMarker is the well-known-text marker a geometry value must contain.
const GeometryMarker = "POINT"

// BoolTrue is the only string flag that coerces to true.
const BoolTrue = "TRUE"

// EmptyJSON is stored for absent nested-document columns.
const EmptyJSON = "[]"

// DefaultLayouts are tried for time columns that declare no layouts.
var DefaultLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02",
}

// missingValues are the sentinels spreadsheet exports use for "no value".
// They apply to delimited sources only; documents keep such strings.
var missingValues = map[string]struct{}{
	"":     {},
	"NaN":  {},
	"nan":  {},
	"-NaN": {},
	"-nan": {},
	"NaT":  {},
	"NULL": {},
	"null": {},
	"None": {},
	"NA":   {},
	"N/A":  {},
	"n/a":  {},
	"<NA>": {},
	"#N/A": {},
}

// Transformer coerces raw records into clean records for one contract.
// It is not safe for concurrent use.
type Transformer struct {
	contract  *TableContract
	columns   []string
	resolvers map[string]Resolver

	// Clock returns the execution time used for time fallbacks and
	// computed timestamp columns. Defaults to time.Now.
	Clock func() time.Time

	// OnAnomaly is called for lossy but accepted coercions, such as a time
	// that failed to parse or an optional foreign key with no match.
	OnAnomaly func(raw RawRecord, column, reason string)
}

// NewTransformer builds a transformer. Every foreign key column must have a
// resolver keyed by column name.
func NewTransformer(contract *TableContract, resolvers map[string]Resolver) (*Transformer, error) {
	if err := contract.Validate(); err != nil {
		return nil, err
	}
	for _, col := range contract.Columns {
		if col.FK != nil && resolvers[col.Name] == nil {
			return nil, fmt.Errorf("table %s column %s: no resolver for foreign key", contract.Table, col.Name)
		}
	}
	return &Transformer{
		contract:  contract,
		columns:   contract.ColumnNames(),
		resolvers: resolvers,
		Clock:     time.Now,
	}, nil
}

// Transform cleans one raw record. Row-level failures are returned as
// *TransformSkip; the caller drops the row and continues.
func (t *Transformer) Transform(ctx context.Context, raw RawRecord) (CleanRecord, error) {
	now := t.Clock()
	values := make([]any, len(t.contract.Columns))
	var naturals map[string]string

	for i, col := range t.contract.Columns {
		if col.Computed() {
			switch {
			case col.Now:
				values[i] = now
			default:
				values[i] = col.Const
			}
			continue
		}

		v, _ := raw.Get(col.Field)
		if t.isMissing(v) {
			v = nil
		}
		if col.FK != nil && col.FK.MatchColumn != col.FK.TargetColumn && v != nil {
			if key, err := toText(v); err == nil {
				if naturals == nil {
					naturals = make(map[string]string)
				}
				naturals[col.Name] = key
			}
		}

		out, err := t.coerce(ctx, raw, col, v, now)
		if err != nil {
			return CleanRecord{}, err
		}
		if out == nil && !col.Nullable {
			return CleanRecord{}, skip(raw, col.Name, "required value is missing", nil)
		}
		values[i] = out
	}

	rec := newCleanRecord(t.columns, values)
	rec.naturals = naturals
	return rec, nil
}

func (t *Transformer) coerce(ctx context.Context, raw RawRecord, col Column, v any, now time.Time) (any, error) {
	switch col.Type {
	case TypeText:
		if v == nil {
			return nil, nil
		}
		s, err := toText(v)
		if err != nil {
			return nil, skip(raw, col.Name, "value is not text", err)
		}
		if col.FK != nil {
			return t.resolve(ctx, raw, col, s)
		}
		return s, nil

	case TypeFloat:
		f, ok := toFloat(v)
		if !ok {
			if col.Nullable {
				return nil, nil
			}
			return 0.0, nil
		}
		return f, nil

	case TypeInt:
		f, ok := toFloat(v)
		if !ok || f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
			if col.Nullable {
				return nil, nil
			}
			return int64(0), nil
		}
		return int64(f), nil

	case TypeTimestamp, TypeDate:
		if v == nil && col.Nullable {
			return nil, nil
		}
		ts, ok := parseTime(v, col.Layouts)
		if !ok {
			t.anomaly(raw, col.Name, fmt.Sprintf("unparsable time %q replaced with execution time", describe(v)))
			ts = now
		}
		if col.Type == TypeDate {
			ts = time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		}
		return ts, nil

	case TypeBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			return b == BoolTrue, nil
		default:
			return false, nil
		}

	case TypeJSON:
		if v == nil {
			return EmptyJSON, nil
		}
		s, err := canonicalJSON(v)
		if err != nil {
			return nil, skip(raw, col.Name, "invalid nested document", err)
		}
		return s, nil

	case TypeGeometry:
		if v == nil {
			return nil, nil
		}
		s, err := toText(v)
		if err != nil || !strings.Contains(s, GeometryMarker) {
			return nil, nil
		}
		return s, nil

	default:
		return nil, skip(raw, col.Name, fmt.Sprintf("unsupported column type %s", col.Type), nil)
	}
}

func (t *Transformer) resolve(ctx context.Context, raw RawRecord, col Column, key string) (any, error) {
	surrogate, err := t.resolvers[col.Name].Resolve(ctx, key)
	switch {
	case err == nil:
		return surrogate, nil
	case errors.Is(err, ErrForeignKeyNotFound):
		if col.Nullable {
			t.anomaly(raw, col.Name, fmt.Sprintf("%s %q not found in %s; stored as null", col.FK.MatchColumn, key, col.FK.Table))
			return nil, nil
		}
		return nil, skip(raw, col.Name, fmt.Sprintf("%s %q not found in %s", col.FK.MatchColumn, key, col.FK.Table), err)
	default:
		return nil, skip(raw, col.Name, "foreign key lookup failed", err)
	}
}

func (t *Transformer) anomaly(raw RawRecord, column, reason string) {
	if t.OnAnomaly != nil {
		t.OnAnomaly(raw, column, reason)
	}
}

func (t *Transformer) isMissing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		s := strings.TrimSpace(x)
		if t.contract.Source == Document {
			return s == ""
		}
		_, ok := missingValues[s]
		return ok
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	default:
		return false
	}
}

func toText(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case json.Number:
		return x.String(), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	case time.Time:
		return x.Format(time.RFC3339Nano), nil
	case map[string]any, []any:
		return canonicalJSON(x)
	default:
		s, ok := convert.ToString(v)
		if !ok {
			return "", fmt.Errorf("cannot convert %T to text", v)
		}
		return s, nil
	}
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = x
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case bool:
		return 0, false
	default:
		converted, ok := convert.ToFloat64(v)
		if !ok {
			return 0, false
		}
		f = converted
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseTime(v any, layouts []string) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false
		}
		if len(layouts) == 0 {
			layouts = DefaultLayouts
		}
		for _, layout := range layouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
		if ts, err := date.Parse(s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// canonicalJSON parses an encoded document (or takes an already decoded
// one) and re-serializes it compactly with sorted object keys.
func canonicalJSON(v any) (string, error) {
	doc := v
	if s, ok := v.(string); ok {
		dec := json.NewDecoder(strings.NewReader(s))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return "", err
		}
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("unexpected data after document")
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func describe(v any) string {
	if v == nil {
		return ""
	}
	s, err := toText(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return s
}
