package commands

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// maxDepth stops recursive schemas.
const maxDepth = 8

// fabricator builds values shaped by a JSON schema. $ref pointers are
// resolved against root, leaf values come from fake.
type fabricator struct {
	root map[string]any
	fake *gofakeit.Faker
}

// newFabricator returns a fabricator drawing from fake, or from a randomly
// seeded faker when fake is nil.
func newFabricator(root map[string]any, fake *gofakeit.Faker) *fabricator {
	if fake == nil {
		fake = gofakeit.New(0)
	}
	return &fabricator{root: root, fake: fake}
}

// value fabricates one value for schema. name is the property name the value
// is generated for, it steers the choice of realistic strings.
func (f *fabricator) value(schema any, name string, depth int) any {
	s, ok := schema.(map[string]any)
	if !ok {
		if b, isBool := schema.(bool); isBool && !b {
			return nil
		}
		return f.fake.Word()
	}
	if depth > maxDepth {
		return nil
	}

	if ref, ok := s["$ref"].(string); ok {
		if target, found := f.resolve(ref); found {
			return f.value(target, name, depth+1)
		}
	}
	if c, ok := s["const"]; ok {
		return c
	}
	if enum, ok := s["enum"].([]any); ok && len(enum) > 0 {
		return enum[f.fake.Number(0, len(enum)-1)]
	}
	if all, ok := s["allOf"].([]any); ok && len(all) > 0 {
		return f.value(f.mergeAll(s, all), name, depth+1)
	}
	for _, key := range []string{"oneOf", "anyOf"} {
		if options, ok := s[key].([]any); ok && len(options) > 0 {
			return f.value(options[0], name, depth+1)
		}
	}

	switch schemaType(s) {
	case "object":
		return f.object(s, depth)
	case "array":
		return f.array(s, name, depth)
	case "integer":
		return f.integer(s)
	case "number":
		return f.number(s)
	case "boolean":
		return f.fake.Bool()
	case "null":
		return nil
	default:
		return f.str(s, name)
	}
}

// resolve follows a local JSON pointer such as "#/$defs/Review".
func (f *fabricator) resolve(ref string) (any, bool) {
	if !strings.HasPrefix(ref, "#") {
		return nil, false
	}
	var node any = f.root
	for _, token := range strings.Split(strings.TrimPrefix(ref, "#"), "/") {
		if token == "" {
			continue
		}
		token = strings.ReplaceAll(strings.ReplaceAll(token, "~1", "/"), "~0", "~")
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		if node, ok = m[token]; !ok {
			return nil, false
		}
	}
	return node, true
}

// mergeAll folds the allOf subschemas into one object schema.
func (f *fabricator) mergeAll(s map[string]any, all []any) map[string]any {
	merged := make(map[string]any)
	props := make(map[string]any)
	var required []any

	parts := append([]any{withoutKey(s, "allOf")}, all...)
	for _, part := range parts {
		p, ok := part.(map[string]any)
		if ref, isRef := p["$ref"].(string); ok && isRef {
			if target, found := f.resolve(ref); found {
				p, ok = target.(map[string]any)
			}
		}
		if !ok {
			continue
		}
		for k, v := range p {
			switch k {
			case "properties":
				if m, isMap := v.(map[string]any); isMap {
					for pk, pv := range m {
						props[pk] = pv
					}
				}
			case "required":
				if r, isSlice := v.([]any); isSlice {
					required = append(required, r...)
				}
			case "$ref":
			default:
				merged[k] = v
			}
		}
	}
	if len(props) > 0 {
		merged["properties"] = props
		merged["type"] = "object"
	}
	if len(required) > 0 {
		merged["required"] = required
	}
	return merged
}

func withoutKey(m map[string]any, key string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if k != key {
			out[k] = v
		}
	}
	return out
}

func schemaType(s map[string]any) string {
	switch t := s["type"].(type) {
	case string:
		return t
	case []any:
		for _, v := range t {
			if name, ok := v.(string); ok && name != "null" {
				return name
			}
		}
		return "null"
	}
	switch {
	case s["properties"] != nil:
		return "object"
	case s["items"] != nil:
		return "array"
	}
	return "string"
}

func (f *fabricator) object(s map[string]any, depth int) map[string]any {
	props, _ := s["properties"].(map[string]any)
	required := make(map[string]bool)
	if r, ok := s["required"].([]any); ok {
		for _, v := range r {
			if name, ok := v.(string); ok {
				required[name] = true
			}
		}
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]any, len(names))
	for _, name := range names {
		if !required[name] && f.fake.Number(0, 9) < 3 {
			continue
		}
		if v := f.value(props[name], name, depth+1); v != nil || required[name] {
			out[name] = v
		}
	}
	return out
}

func (f *fabricator) array(s map[string]any, name string, depth int) []any {
	minItems := intKeyword(s, "minItems", 1)
	maxItems := intKeyword(s, "maxItems", minItems+2)
	if maxItems < minItems {
		maxItems = minItems
	}
	n := f.fake.Number(minItems, maxItems)
	unique, _ := s["uniqueItems"].(bool)

	out := make([]any, 0, n)
	seen := make(map[string]bool)
	for attempts := 0; len(out) < n && attempts < n*10; attempts++ {
		v := f.value(s["items"], singular(name), depth+1)
		if unique {
			key := fmt.Sprint(v)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, v)
	}
	return out
}

func singular(name string) string {
	if strings.HasSuffix(name, "s") {
		return strings.TrimSuffix(name, "s")
	}
	return name
}

func (f *fabricator) integer(s map[string]any) int64 {
	lo, hi := bounds(s, 0, 1000)
	lo, hi = math.Ceil(lo), math.Floor(hi)
	if v, ok := s["exclusiveMinimum"].(float64); ok && lo == v {
		lo++
	}
	if v, ok := s["exclusiveMaximum"].(float64); ok && hi == v {
		hi--
	}
	if hi < lo {
		hi = lo
	}
	v := int64(f.fake.Number(int(lo), int(hi)))
	if m, ok := s["multipleOf"].(float64); ok && m >= 1 {
		step := int64(m)
		v -= v % step
		if float64(v) < lo {
			v += step
		}
	}
	return v
}

func (f *fabricator) number(s map[string]any) float64 {
	lo, hi := bounds(s, 0, 1000)
	v := f.fake.Float64Range(lo, hi)
	v = math.Round(v*100) / 100
	if v <= lo {
		v = lo
		if _, ok := s["exclusiveMinimum"]; ok {
			v = lo + (hi-lo)/2
		}
	}
	if v >= hi {
		v = hi
		if _, ok := s["exclusiveMaximum"]; ok {
			v = lo + (hi-lo)/2
		}
	}
	return v
}

// bounds reads minimum/maximum and their exclusive forms.
func bounds(s map[string]any, lo, hi float64) (float64, float64) {
	minSet, maxSet := false, false
	if v, ok := s["minimum"].(float64); ok {
		lo, minSet = v, true
	}
	if v, ok := s["exclusiveMinimum"].(float64); ok {
		lo, minSet = v, true
	}
	if v, ok := s["maximum"].(float64); ok {
		hi, maxSet = v, true
	}
	if v, ok := s["exclusiveMaximum"].(float64); ok {
		hi, maxSet = v, true
	}
	switch {
	case minSet && !maxSet:
		hi = lo + 1000
	case maxSet && !minSet && hi < lo:
		lo = hi - 1000
	}
	return lo, hi
}

func intKeyword(s map[string]any, key string, def int) int {
	if v, ok := s[key].(float64); ok {
		return int(v)
	}
	return def
}

func (f *fabricator) str(s map[string]any, name string) string {
	var v string
	if format, ok := s["format"].(string); ok {
		v = f.formatted(format)
	}
	if v == "" {
		v = f.named(name)
		if pattern, ok := s["pattern"].(string); ok {
			v = f.matching(pattern, v)
		}
	}
	return fitLength(v, intKeyword(s, "minLength", 0), intKeyword(s, "maxLength", 0))
}

func (f *fabricator) formatted(format string) string {
	switch format {
	case "uuid":
		return f.fake.UUID()
	case "email":
		return f.fake.Email()
	case "date-time":
		return f.fake.PastDate().UTC().Format(time.RFC3339)
	case "date":
		return f.fake.PastDate().Format(time.DateOnly)
	case "time":
		return f.fake.PastDate().UTC().Format(time.TimeOnly) + "Z"
	case "uri", "url", "iri":
		return f.fake.URL()
	case "hostname":
		return f.fake.DomainName()
	case "ipv4":
		return f.fake.IPv4Address()
	case "ipv6":
		return f.fake.IPv6Address()
	}
	return ""
}

// matching keeps candidate when pattern accepts it and generates a string
// from pattern otherwise.
func (f *fabricator) matching(pattern, candidate string) string {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return candidate
	}
	if re.MatchString(candidate) {
		return candidate
	}
	return f.fake.Regex(pattern)
}

// named returns a string that suits a property called name.
func (f *fabricator) named(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "email"):
		return f.fake.Email()
	case lower == "name" || strings.HasSuffix(lower, "name"):
		return f.fake.Name()
	case strings.Contains(lower, "city"):
		return f.fake.City()
	case strings.Contains(lower, "country"):
		return f.fake.CountryAbr()
	case strings.Contains(lower, "address") || strings.Contains(lower, "street"):
		return f.fake.Street()
	case strings.Contains(lower, "description") || strings.Contains(lower, "comment") || strings.Contains(lower, "text"):
		return f.fake.Sentence(8)
	}
	return f.fake.Word()
}

func fitLength(v string, minLength, maxLength int) string {
	for len([]rune(v)) < minLength {
		v += "x"
	}
	if maxLength > 0 && len([]rune(v)) > maxLength {
		v = string([]rune(v)[:maxLength])
	}
	return v
}
