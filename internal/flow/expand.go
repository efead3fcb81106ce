package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// placeholderPattern matches {{ NAME }} markers. Names are word
// segments joined by dots or whitespace.
var placeholderPattern = regexp.MustCompile(`(?i)\{\{\s*(\w+(?:(?:\.|\s+)\w+)*)\s*\}\}`)

// ExpandText substitutes every known placeholder in text. Lookups run
// concurrently; unknown names keep their literal marker.
func ExpandText(ctx context.Context, text string, vars *Variables) (string, error) {
	matches := placeholderPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	values := make([]any, len(matches))
	g, gctx := errgroup.WithContext(ctx)
	for i, match := range matches {
		name := text[match[2]:match[3]]
		g.Go(func() error {
			value, err := vars.Get(gctx, name)
			if err != nil {
				return err
			}
			values[i] = value
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	var b []byte
	last := 0
	for i, match := range matches {
		b = append(b, text[last:match[0]]...)
		if values[i] == nil {
			b = append(b, text[match[0]:match[1]]...)
		} else {
			b = append(b, Stringify(values[i])...)
		}
		last = match[1]
	}
	b = append(b, text[last:]...)
	return string(b), nil
}

// ExpandValue expands a fully placeholder-only or mixed string and,
// when deserialize is set, converts the final value to bool, int or
// float if it parses as one.
func ExpandValue(ctx context.Context, text string, vars *Variables, deserialize bool) (any, error) {
	expanded, err := ExpandText(ctx, text, vars)
	if err != nil {
		return nil, err
	}
	if deserialize {
		return Deserialize(expanded), nil
	}
	return expanded, nil
}

// ExpandData walks an arbitrary JSON-shaped value, expanding every
// string in it, map keys included. Only values are deserialized.
func ExpandData(ctx context.Context, data any, vars *Variables, deserialize bool) (any, error) {
	switch value := data.(type) {
	case string:
		return ExpandValue(ctx, value, vars, deserialize)

	case []any:
		expanded := make([]any, len(value))
		for i, item := range value {
			item, err := ExpandData(ctx, item, vars, deserialize)
			if err != nil {
				return nil, err
			}
			expanded[i] = item
		}
		return expanded, nil

	case map[string]any:
		expanded := make(map[string]any, len(value))
		for key, item := range value {
			newKey, err := ExpandText(ctx, key, vars)
			if err != nil {
				return nil, err
			}
			item, err = ExpandData(ctx, item, vars, deserialize)
			if err != nil {
				return nil, err
			}
			expanded[newKey] = item
		}
		return expanded, nil
	}
	return data, nil
}

// Deserialize narrows a textual value to bool, int64 or float64 when
// it parses as one, keeping the string otherwise.
func Deserialize(text string) any {
	switch strings.ToLower(text) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f
	}
	return text
}

// Stringify renders a resolved variable value into substituted text.
// Containers render as JSON.
func Stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	default:
		return fmt.Sprint(v)
	}
}
