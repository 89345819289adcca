package command

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"filethings/internal/apperr"
)

// datetimePattern accepts "2021-08-01 12:34", "2021-08-01T12:34:56Z",
// "2021-08-01T12:34:56.123+08:00" and the like.
var datetimePattern = regexp.MustCompile(
	`^(\d+)-(\d+)-(\d+)[T ]+(\d+):(\d+)(?::(\d+))?(?:[.,]\d+)?\s*(Z|[+-]\d{2}:?\d{2})?$`,
)

// replacementMap returns the map parameter with its keys in a stable order.
func replacementMap(p Params) ([]string, map[string]string, error) {
	raw, ok := p.Object("map")
	if !ok {
		return nil, nil, apperr.Param("map must be a object")
	}
	out := make(map[string]string, len(raw))
	keys := make([]string, 0, len(raw))
	for k, v := range raw {
		s, isStr := v.(string)
		if !isStr {
			return nil, nil, apperr.Param("map value must be a string")
		}
		out[k] = s
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, out, nil
}

func looseText(p Params) (string, error) {
	text, ok := p["text"].(string)
	if !ok {
		return "", apperr.Param("text must be a string")
	}
	return text, nil
}

func (d *Dispatcher) textReplace(_ context.Context, p Params) (*Envelope, error) {
	text, err := looseText(p)
	if err != nil {
		return nil, err
	}
	keys, repl, err := replacementMap(p)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		text = strings.ReplaceAll(text, k, repl[k])
	}
	return withContent(text), nil
}

// textReplaceWords replaces whole-word occurrences only.
func (d *Dispatcher) textReplaceWords(_ context.Context, p Params) (*Envelope, error) {
	text, err := looseText(p)
	if err != nil {
		return nil, err
	}
	keys, repl, err := replacementMap(p)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(k) + `\b`)
		if err != nil {
			return nil, apperr.Param("pattern error: %v", err)
		}
		text = re.ReplaceAllLiteralString(text, repl[k])
	}
	return withContent(text), nil
}

func textAndPattern(p Params) (string, *regexp.Regexp, error) {
	text, err := p.Required("text")
	if err != nil {
		return "", nil, err
	}
	pattern, err := p.Required("pattern")
	if err != nil {
		return "", nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", nil, apperr.Param("pattern error: %v", err)
	}
	return text, re, nil
}

func (d *Dispatcher) textRegexExtract(_ context.Context, p Params) (*Envelope, error) {
	text, re, err := textAndPattern(p)
	if err != nil {
		return nil, err
	}
	captures, ok, err := p.Array("captures")
	if err != nil {
		return nil, apperr.Param("`captures` must be a array")
	}
	if !ok {
		return nil, apperr.Param("`captures` is required")
	}

	loc := re.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil, apperr.NotFound("pattern not match")
	}
	out := make([]string, 0, len(captures))
	for _, c := range captures {
		idx, isInt := asInt(c)
		if !isInt || idx < 0 {
			return nil, apperr.Param("capture index must be a number")
		}
		if int(idx)*2+1 >= len(loc) || loc[idx*2] < 0 {
			return nil, apperr.Param("capture index out of range")
		}
		out = append(out, strings.TrimSpace(text[loc[idx*2]:loc[idx*2+1]]))
	}
	return withContent(out), nil
}

func (d *Dispatcher) textRegexFindAll(_ context.Context, p Params) (*Envelope, error) {
	text, re, err := textAndPattern(p)
	if err != nil {
		return nil, err
	}
	matches := re.FindAllString(text, -1)
	if matches == nil {
		matches = []string{}
	}
	return withContent(matches), nil
}

// textRegexMatch reports whether text matches any of patterns (or the single
// pattern).
func (d *Dispatcher) textRegexMatch(_ context.Context, p Params) (*Envelope, error) {
	text, ok := p["text"].(string)
	if !ok {
		return nil, apperr.Param("Missing `text` parameter")
	}
	list, _ := p["patterns"].([]any)
	patterns := make([]string, 0, len(list)+1)
	for _, v := range list {
		s, _ := v.(string)
		patterns = append(patterns, s)
	}
	single, _ := p["pattern"].(string)
	if len(patterns) == 0 {
		if single == "" {
			return nil, apperr.Param("Missing `patterns` or `pattern` parameter")
		}
		patterns = append(patterns, single)
	}

	for _, pat := range patterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, apperr.Param("pattern error: %v", err)
		}
		if re.MatchString(text) {
			return withContent(true), nil
		}
	}
	return withContent(false), nil
}

func (d *Dispatcher) textSplit(_ context.Context, p Params) (*Envelope, error) {
	text, err := looseText(p)
	if err != nil {
		return nil, err
	}
	sep, ok := p["separator"].(string)
	if !ok {
		return nil, apperr.Param("separator must be a string")
	}
	return withContent(strings.Split(text, sep)), nil
}

// textDatetimeSplit breaks a date-time string into template placeholders.
// Seconds default to "00"; timezone is "+HH:MM"/"-HH:MM" or empty.
func (d *Dispatcher) textDatetimeSplit(_ context.Context, p Params) (*Envelope, error) {
	raw, ok := p["datetime"].(string)
	if !ok {
		return nil, apperr.Param("Missing `datetime` parameter")
	}
	parts, err := splitDatetime(raw)
	if err != nil {
		return nil, err
	}
	return withContent(parts), nil
}

func splitDatetime(raw string) (map[string]string, error) {
	s := strings.TrimSpace(raw)
	m := datetimePattern.FindStringSubmatch(s)
	if m == nil {
		fields := strings.Fields(strings.Replace(s, "T", " ", 1))
		switch {
		case len(fields) < 2:
			return nil, apperr.Format("Invalid datetime format")
		case len(strings.Split(fields[0], "-")) != 3:
			return nil, apperr.Format("Invalid date format")
		default:
			return nil, apperr.Format("Invalid time format")
		}
	}

	second := m[6]
	if second == "" {
		second = "00"
	}
	tz := m[7]
	switch {
	case tz == "Z":
		tz = ""
	case tz != "" && !strings.Contains(tz, ":"):
		tz = tz[:3] + ":" + tz[3:]
	}
	return map[string]string{
		"{year}":   m[1],
		"{month}":  m[2],
		"{day}":    m[3],
		"{hour}":   m[4],
		"{minute}": m[5],
		"{second}": second,
		"timezone": tz,
	}, nil
}
