package flow

import (
	"context"
	"reflect"
	"testing"
)

func TestExpandText(t *testing.T) {
	vars := testVariables(&fakeAPI{}, map[string]any{
		"NAME":  "Ann",
		"SCORE": int64(42),
		"DATA":  map[string]any{"city": "Riga"},
	})

	tests := []struct {
		name string
		text string
		want string
	}{
		{"no placeholders", "plain text", "plain text"},
		{"known name", "hello {{ NAME }}", "hello Ann"},
		{"tight braces", "{{NAME}}", "Ann"},
		{"number renders without exponent", "score: {{ SCORE }}", "score: 42"},
		{"unknown name stays literal", "hi {{ NOBODY }}", "hi {{ NOBODY }}"},
		{"lookup is case sensitive", "hi {{ name }}", "hi {{ name }}"},
		{"nested container path", "from {{ DATA.city }}", "from Riga"},
		{"container renders as json", "all: {{ DATA }}", `all: {"city":"Riga"}`},
		{"several markers", "{{ NAME }} has {{ SCORE }}", "Ann has 42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandText(context.Background(), tt.text, vars)
			if err != nil {
				t.Fatalf("ExpandText(%q) error = %v", tt.text, err)
			}
			if got != tt.want {
				t.Errorf("ExpandText(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestExpandData(t *testing.T) {
	vars := testVariables(&fakeAPI{}, map[string]any{
		"KEY":   "name",
		"VALUE": "Ann",
		"AGE":   "30",
	})

	data := map[string]any{
		"{{ KEY }}": "{{ VALUE }}",
		"age":       "{{ AGE }}",
		"tags":      []any{"{{ VALUE }}", "fixed"},
		"keep":      7.0,
	}

	got, err := ExpandData(context.Background(), data, vars, true)
	if err != nil {
		t.Fatalf("ExpandData() error = %v", err)
	}

	want := map[string]any{
		"name": "Ann",
		"age":  int64(30),
		"tags": []any{"Ann", "fixed"},
		"keep": 7.0,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandData() = %#v, want %#v", got, want)
	}
}

func TestDeserialize(t *testing.T) {
	tests := []struct {
		text string
		want any
	}{
		{"true", true},
		{"True", true},
		{"FALSE", false},
		{"42", int64(42)},
		{"-7", int64(-7)},
		{"3.14", 3.14},
		{"hello", "hello"},
		{"", ""},
		{"42abc", "42abc"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := Deserialize(tt.text)
			if got != tt.want {
				t.Errorf("Deserialize(%q) = %#v, want %#v", tt.text, got, tt.want)
			}
		})
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string", "hi", "hi"},
		{"bool", true, "true"},
		{"int64", int64(42), "42"},
		{"whole float", 42.0, "42"},
		{"fractional float", 3.5, "3.5"},
		{"map", map[string]any{"a": 1.0}, `{"a":1}`},
		{"slice", []any{"x", 2.0}, `["x",2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Stringify(tt.value)
			if got != tt.want {
				t.Errorf("Stringify(%#v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}
