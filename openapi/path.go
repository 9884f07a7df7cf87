package openapi

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ruleVarRegexp matches route variables in the form <name>, <conv:name> or
// <conv(args):name>.
var ruleVarRegexp = regexp.MustCompile(`<(?:([a-zA-Z_][a-zA-Z0-9_]*)(?:\((.*?)\))?:)?([a-zA-Z_][a-zA-Z0-9_]*)>`)

// ConverterArgs holds the arguments given to a converter, e.g. the 2 and
// max=10 in <int(2, max=10):id>.
type ConverterArgs struct {
	Positional []any
	Keyword    map[string]any
}

func (a ConverterArgs) intArg(key string) (int, bool) {
	switch v := a.Keyword[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

func (a ConverterArgs) floatArg(key string) (float64, bool) {
	switch v := a.Keyword[key].(type) {
	case int:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func (a ConverterArgs) boolArg(key string) bool {
	b, _ := a.Keyword[key].(bool)
	return b
}

// PathVar is one variable of a path template.
type PathVar struct {
	Name      string
	Converter string
	Args      ConverterArgs
}

// converter describes how a path converter routes and documents a value.
type converter struct {
	pattern func(a ConverterArgs) string
	schema  func(a ConverterArgs) map[string]any
	check   func(value string, a ConverterArgs) bool
}

func stringSchema(format string) func(ConverterArgs) map[string]any {
	return func(ConverterArgs) map[string]any {
		s := map[string]any{"type": "string"}
		if format != "" {
			s["format"] = format
		}
		return s
	}
}

func fixedPattern(p string) func(ConverterArgs) string {
	return func(ConverterArgs) string { return p }
}

// converters maps converter names to their routing and schema rules.
var converters = map[string]converter{
	"default": {pattern: stringPattern, schema: stringLengthSchema},
	"string":  {pattern: stringPattern, schema: stringLengthSchema},
	"path":    {pattern: fixedPattern(`[^/].*`), schema: stringSchema("")},
	"any":     {pattern: anyPattern, schema: anySchema},
	"int": {
		pattern: func(a ConverterArgs) string {
			p := `\d+`
			if n, ok := a.intArg("fixed_digits"); ok && n > 0 {
				p = fmt.Sprintf(`\d{%d}`, n)
			}
			if a.boolArg("signed") {
				p = `-?` + p
			}
			return p
		},
		schema: numericSchema("integer"),
		check:  rangeCheck,
	},
	"float": {
		pattern: func(a ConverterArgs) string {
			if a.boolArg("signed") {
				return `-?\d+\.\d+`
			}
			return `\d+\.\d+`
		},
		schema: numericSchema("number"),
		check:  rangeCheck,
	},
	"uuid": {
		pattern: fixedPattern(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`),
		schema:  stringSchema("uuid"),
		check: func(value string, _ ConverterArgs) bool {
			_, err := uuid.Parse(value)
			return err == nil
		},
	},
	"slug":     {pattern: fixedPattern(`[a-zA-Z0-9]+(?:-[a-zA-Z0-9]+)*`), schema: stringSchema("")},
	"alpha":    {pattern: fixedPattern(`[a-zA-Z]+`), schema: stringSchema("")},
	"alphanum": {pattern: fixedPattern(`[a-zA-Z0-9]+`), schema: stringSchema("")},
	"hex":      {pattern: fixedPattern(`[0-9a-fA-F]+`), schema: stringSchema("")},
	"date": {
		pattern: fixedPattern(`[0-9]{4}-[0-9]{2}-[0-9]{2}`),
		schema:  stringSchema("date"),
		check: func(value string, _ ConverterArgs) bool {
			_, err := time.Parse(time.DateOnly, value)
			return err == nil
		},
	},
	// RFC 1035/1123: labels 1-63 chars, total up to 253 chars.
	"domain": {
		pattern: fixedPattern(`(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)*[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?`),
		schema:  stringSchema("hostname"),
		check: func(value string, _ ConverterArgs) bool {
			return len(value) <= 253
		},
	},
}

func stringPattern(a ConverterArgs) string {
	if n, ok := a.intArg("length"); ok {
		return fmt.Sprintf(`[^/]{%d}`, n)
	}
	minLen := 1
	if n, ok := a.intArg("minlength"); ok {
		minLen = n
	}
	if n, ok := a.intArg("maxlength"); ok {
		return fmt.Sprintf(`[^/]{%d,%d}`, minLen, n)
	}
	return fmt.Sprintf(`[^/]{%d,}`, minLen)
}

func stringLengthSchema(a ConverterArgs) map[string]any {
	s := map[string]any{"type": "string"}
	if n, ok := a.intArg("length"); ok {
		s["minLength"] = n
		s["maxLength"] = n
		return s
	}
	if n, ok := a.intArg("minlength"); ok {
		s["minLength"] = n
	}
	if n, ok := a.intArg("maxlength"); ok {
		s["maxLength"] = n
	}
	return s
}

func anyItems(a ConverterArgs) []string {
	items := make([]string, 0, len(a.Positional))
	for _, v := range a.Positional {
		items = append(items, fmt.Sprint(v))
	}
	return items
}

func anyPattern(a ConverterArgs) string {
	items := anyItems(a)
	for i, item := range items {
		items[i] = regexp.QuoteMeta(item)
	}
	return "(?:" + strings.Join(items, "|") + ")"
}

func anySchema(a ConverterArgs) map[string]any {
	items := anyItems(a)
	enum := make([]any, len(items))
	for i, item := range items {
		enum[i] = item
	}
	return map[string]any{"type": "string", "enum": enum}
}

func numericSchema(typ string) func(ConverterArgs) map[string]any {
	return func(a ConverterArgs) map[string]any {
		s := map[string]any{"type": typ}
		if typ == "integer" {
			if v, ok := a.intArg("min"); ok {
				s["minimum"] = v
			}
			if v, ok := a.intArg("max"); ok {
				s["maximum"] = v
			}
			return s
		}
		if v, ok := a.floatArg("min"); ok {
			s["minimum"] = v
		}
		if v, ok := a.floatArg("max"); ok {
			s["maximum"] = v
		}
		return s
	}
}

func rangeCheck(value string, a ConverterArgs) bool {
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return false
	}
	if v, ok := a.floatArg("min"); ok && n < v {
		return false
	}
	if v, ok := a.floatArg("max"); ok && n > v {
		return false
	}
	return true
}

// converterName returns the converter used for the variable, treating an
// absent converter as "default".
func (v PathVar) converterName() string {
	if v.Converter == "" {
		return "default"
	}
	return v.Converter
}

// Supported reports whether the variable's converter is known.
func (v PathVar) Supported() bool {
	_, ok := converters[v.converterName()]
	return ok
}

// Schema returns the JSON Schema of the variable's value.
func (v PathVar) Schema() (map[string]any, error) {
	c, ok := converters[v.converterName()]
	if !ok {
		return nil, &ConverterError{Variable: v.Name, Converter: v.Converter}
	}
	return c.schema(v.Args), nil
}

// Pattern returns the regular expression matching one value of the variable.
// Unknown converters match a single path segment.
func (v PathVar) Pattern() string {
	c, ok := converters[v.converterName()]
	if !ok {
		return `[^/]+`
	}
	return c.pattern(v.Args)
}

// MatchValue applies the converter's value check beyond its pattern.
func (v PathVar) MatchValue(value string) bool {
	c, ok := converters[v.converterName()]
	if !ok || c.check == nil {
		return true
	}
	return c.check(value, v.Args)
}

// ParsePath returns the variables of a path template in template order.
func ParsePath(tpl string) []PathVar {
	var vars []PathVar
	for _, m := range ruleVarRegexp.FindAllStringSubmatch(tpl, -1) {
		vars = append(vars, PathVar{
			Name:      m[3],
			Converter: m[1],
			Args:      parseConverterArgs(m[2]),
		})
	}
	return vars
}

// ExtractPathParams returns a path parameter fragment per template variable,
// keyed by name, along with the names in template order.
func ExtractPathParams(tpl string) ([]string, Fragment, error) {
	vars := ParsePath(tpl)
	names := make([]string, 0, len(vars))
	params := make(Fragment, len(vars))

	for _, v := range vars {
		schema, err := v.Schema()
		if err != nil {
			var convErr *ConverterError
			if errors.As(err, &convErr) {
				convErr.Path = tpl
			}
			return nil, nil, err
		}
		names = append(names, v.Name)
		params[v.Name] = map[string]any{
			"in":       "path",
			"required": true,
			"schema":   schema,
		}
	}

	return names, params, nil
}

// ConvertPath rewrites a template to the brace form used as a document path
// key: <int:id> becomes {id}.
func ConvertPath(tpl string) string {
	return ruleVarRegexp.ReplaceAllString(tpl, "{$3}")
}

// RoutePattern compiles a template into an anchored regular expression with
// one named group per variable.
func RoutePattern(tpl string) (*regexp.Regexp, []PathVar, error) {
	var (
		buf  strings.Builder
		vars []PathVar
		last int
	)

	buf.WriteString("^")
	for _, loc := range ruleVarRegexp.FindAllStringSubmatchIndex(tpl, -1) {
		buf.WriteString(regexp.QuoteMeta(tpl[last:loc[0]]))

		v := PathVar{Name: tpl[loc[6]:loc[7]]}
		if loc[2] >= 0 {
			v.Converter = tpl[loc[2]:loc[3]]
		}
		if loc[4] >= 0 {
			v.Args = parseConverterArgs(tpl[loc[4]:loc[5]])
		}
		vars = append(vars, v)

		fmt.Fprintf(&buf, "(?P<%s>%s)", v.Name, v.Pattern())
		last = loc[1]
	}
	buf.WriteString(regexp.QuoteMeta(tpl[last:]))
	buf.WriteString("$")

	re, err := regexp.Compile(buf.String())
	if err != nil {
		return nil, nil, fmt.Errorf("compile route %q: %w", tpl, err)
	}

	return re, vars, nil
}

// parseConverterArgs parses a comma separated argument list. Values may be
// integers, floats, booleans, quoted strings or bare words; key=value pairs
// become keyword arguments.
func parseConverterArgs(s string) ConverterArgs {
	args := ConverterArgs{Keyword: map[string]any{}}
	if strings.TrimSpace(s) == "" {
		return args
	}

	for _, part := range splitArgs(s) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if key, value, ok := strings.Cut(part, "="); ok && isIdent(strings.TrimSpace(key)) {
			args.Keyword[strings.TrimSpace(key)] = parseArgValue(strings.TrimSpace(value))
			continue
		}
		args.Positional = append(args.Positional, parseArgValue(part))
	}

	return args
}

// splitArgs splits on commas that are not inside quotes.
func splitArgs(s string) []string {
	var (
		parts []string
		quote rune
		start int
	)
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == ',':
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func parseArgValue(s string) any {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	switch s {
	case "True", "true":
		return true
	case "False", "false":
		return false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (i > 0 && r >= '0' && r <= '9') {
			continue
		}
		return false
	}
	return true
}
