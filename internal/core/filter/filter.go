// Package filter is a generic filter/sort/project pipeline applied
// uniformly to every normalized record collection. Records advertise
// what they can resolve through small capability interfaces; a record
// lacking a capability is non-matching for that stage, never an error
package filter

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"

	perr "trcli/internal/platform/errors"
)

// DateResolver yields a record's canonical YYYY-MM-DD date, "" when the
// record has none
type DateResolver interface {
	ResolveDateOnly() string
}

// TypeResolver yields a record's type discriminator as a string key
type TypeResolver interface {
	ResolveTypeKey() string
}

// LoadResolver yields a record's numeric training load when it has one
type LoadResolver interface {
	ResolveLoad() (float64, bool)
}

// TextResolver yields a record's searchable free text
type TextResolver interface {
	ResolveText() string
}

// Config is the declarative filter configuration derived once per
// invocation. Every field is independently optional; the zero Config
// passes records through untouched
type Config struct {
	From        string   `json:"from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	To          string   `json:"to,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Types       []string `json:"type,omitempty"`
	Contains    string   `json:"contains,omitempty"`
	MinLoad     *float64 `json:"minTss,omitempty"`
	MaxLoad     *float64 `json:"maxTss,omitempty"`
	Sort        string   `json:"sort,omitempty" validate:"omitempty,oneof=date date-desc load load-desc text text-desc"`
	ResultLimit int      `json:"resultLimit,omitempty" validate:"min=0"`
	Fields      []string `json:"fields,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate rejects malformed dates, unknown sort modes and negative
// limits before any fetch happens
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return perr.Validationf("invalid filter config: %v", err)
	}
	return nil
}

// Active reports whether the config transforms records at all
func (c Config) Active() bool {
	return c.From != "" || c.To != "" || len(c.Types) > 0 || c.Contains != "" ||
		c.MinLoad != nil || c.MaxLoad != nil || c.Sort != "" ||
		c.ResultLimit > 0 || len(c.Fields) > 0
}

// Summary echoes the resolved config plus input/output counts so a
// caller can see what a query did and choose the next one
type Summary struct {
	From        string   `json:"from,omitempty"`
	To          string   `json:"to,omitempty"`
	Types       []string `json:"type"`
	Contains    string   `json:"contains,omitempty"`
	MinLoad     *float64 `json:"minTss,omitempty"`
	MaxLoad     *float64 `json:"maxTss,omitempty"`
	Sort        string   `json:"sort,omitempty"`
	ResultLimit int      `json:"resultLimit,omitempty"`
	Fields      []string `json:"fields"`
	InputCount  int      `json:"inputCount"`
	OutputCount int      `json:"outputCount"`
}

// Result is the filtered records plus the summary
type Result struct {
	Records []any   `json:"records"`
	Summary Summary `json:"filters"`
}

// Apply runs the fixed pipeline: date range, type match, substring,
// load range, stable sort, limit, projection. Pure; the input slice is
// not mutated
func Apply(records []any, cfg Config) Result {
	out := append([]any(nil), records...)

	if cfg.From != "" || cfg.To != "" {
		out = keep(out, func(r any) bool {
			date, ok := resolveDate(r)
			if !ok {
				return false
			}
			if cfg.From != "" && date < cfg.From {
				return false
			}
			if cfg.To != "" && date > cfg.To {
				return false
			}
			return true
		})
	}

	if len(cfg.Types) > 0 {
		candidates := foldAll(cfg.Types)
		out = keep(out, func(r any) bool { return matchesType(r, candidates) })
	}

	if cfg.Contains != "" {
		needle := fold(cfg.Contains)
		out = keep(out, func(r any) bool {
			return strings.Contains(fold(resolveText(r)), needle)
		})
	}

	if cfg.MinLoad != nil || cfg.MaxLoad != nil {
		out = keep(out, func(r any) bool {
			load, ok := resolveLoad(r)
			if !ok {
				return false
			}
			if cfg.MinLoad != nil && load < *cfg.MinLoad {
				return false
			}
			if cfg.MaxLoad != nil && load > *cfg.MaxLoad {
				return false
			}
			return true
		})
	}

	sortRecords(out, cfg.Sort)

	if cfg.ResultLimit > 0 && len(out) > cfg.ResultLimit {
		out = out[:cfg.ResultLimit]
	}

	if len(cfg.Fields) > 0 {
		projected := make([]any, len(out))
		for i, r := range out {
			projected[i] = project(r, cfg.Fields)
		}
		out = projected
	}

	return Result{
		Records: out,
		Summary: Summary{
			From:        cfg.From,
			To:          cfg.To,
			Types:       emptyNotNil(cfg.Types),
			Contains:    cfg.Contains,
			MinLoad:     cfg.MinLoad,
			MaxLoad:     cfg.MaxLoad,
			Sort:        cfg.Sort,
			ResultLimit: cfg.ResultLimit,
			Fields:      emptyNotNil(cfg.Fields),
			InputCount:  len(records),
			OutputCount: len(out),
		},
	}
}

func keep(records []any, pred func(any) bool) []any {
	out := records[:0:0]
	for _, r := range records {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

func resolveDate(r any) (string, bool) {
	dr, ok := r.(DateResolver)
	if !ok {
		return "", false
	}
	date := dr.ResolveDateOnly()
	return date, date != ""
}

func resolveLoad(r any) (float64, bool) {
	lr, ok := r.(LoadResolver)
	if !ok {
		return 0, false
	}
	return lr.ResolveLoad()
}

func resolveText(r any) string {
	tr, ok := r.(TextResolver)
	if !ok {
		return ""
	}
	return tr.ResolveText()
}

// matchesType compares the record's type key against each candidate by
// folded string equality and, when both parse, by numeric equality
func matchesType(r any, candidates []string) bool {
	tr, ok := r.(TypeResolver)
	if !ok {
		return false
	}
	key := tr.ResolveTypeKey()
	if key == "" {
		return false
	}
	folded := fold(key)
	numeric, numErr := strconv.ParseFloat(key, 64)
	for _, candidate := range candidates {
		if candidate == folded {
			return true
		}
		if numErr == nil {
			if n, err := strconv.ParseFloat(candidate, 64); err == nil && n == numeric {
				return true
			}
		}
	}
	return false
}

func sortRecords(records []any, mode string) {
	switch mode {
	case "date":
		sort.SliceStable(records, func(i, j int) bool {
			a, _ := resolveDate(records[i])
			b, _ := resolveDate(records[j])
			return a < b
		})
	case "date-desc":
		sort.SliceStable(records, func(i, j int) bool {
			a, _ := resolveDate(records[i])
			b, _ := resolveDate(records[j])
			return a > b
		})
	case "load":
		sort.SliceStable(records, func(i, j int) bool {
			return loadLess(records[i], records[j], false)
		})
	case "load-desc":
		sort.SliceStable(records, func(i, j int) bool {
			return loadLess(records[i], records[j], true)
		})
	case "text":
		sort.SliceStable(records, func(i, j int) bool {
			return fold(resolveText(records[i])) < fold(resolveText(records[j]))
		})
	case "text-desc":
		sort.SliceStable(records, func(i, j int) bool {
			return fold(resolveText(records[i])) > fold(resolveText(records[j]))
		})
	}
}

// loadLess orders by load with unresolvable values last in both
// directions
func loadLess(a, b any, desc bool) bool {
	av, aok := resolveLoad(a)
	bv, bok := resolveLoad(b)
	if !aok {
		return false
	}
	if !bok {
		return true
	}
	if desc {
		return av > bv
	}
	return av < bv
}

// project reduces a record to the requested dotted-path fields, keyed
// by the path. A path that resolves nowhere yields an explicit null.
// The record is viewed through its JSON form so projection follows the
// same field names the caller sees in output
func project(r any, fields []string) map[string]any {
	view := jsonView(r)
	out := make(map[string]any, len(fields))
	for _, field := range fields {
		out[field] = lookupPath(view, field)
	}
	return out
}

func jsonView(r any) any {
	data, err := json.Marshal(r)
	if err != nil {
		return nil
	}
	var view any
	if err := json.Unmarshal(data, &view); err != nil {
		return nil
	}
	return view
}

func lookupPath(view any, path string) any {
	cursor := view
	for _, segment := range strings.Split(path, ".") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		obj, ok := cursor.(map[string]any)
		if !ok {
			return nil
		}
		cursor, ok = obj[segment]
		if !ok {
			return nil
		}
	}
	return cursor
}

func fold(s string) string {
	return cases.Fold().String(s)
}

func foldAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fold(strings.TrimSpace(v))
	}
	return out
}

func emptyNotNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
