package jsonutil

import (
	"encoding/json"
	"testing"
)

func TestFlexibleStringValue(t *testing.T) {
	tests := []struct {
		name  string
		input json.RawMessage
		want  string
	}{
		{
			name:  "string value",
			input: json.RawMessage(`"hello"`),
			want:  "hello",
		},
		{
			name:  "integer value",
			input: json.RawMessage(`42`),
			want:  "42",
		},
		{
			name:  "float value",
			input: json.RawMessage(`3.14`),
			want:  "3.14",
		},
		{
			name:  "boolean true",
			input: json.RawMessage(`true`),
			want:  "true",
		},
		{
			name:  "boolean false",
			input: json.RawMessage(`false`),
			want:  "false",
		},
		{
			name:  "null value",
			input: json.RawMessage(`null`),
			want:  "",
		},
		{
			name:  "empty raw message",
			input: json.RawMessage{},
			want:  "",
		},
		{
			name:  "nil raw message",
			input: nil,
			want:  "",
		},
		{
			name:  "large integer preserves precision",
			input: json.RawMessage(`9007199254740992`),
			want:  "9007199254740992",
		},
		{
			name:  "nested object falls back to raw string",
			input: json.RawMessage(`{"key":"value"}`),
			want:  `{"key":"value"}`,
		},
		{
			name:  "array falls back to raw string",
			input: json.RawMessage(`[1,2,3]`),
			want:  `[1,2,3]`,
		},
		{
			name:  "negative integer",
			input: json.RawMessage(`-7`),
			want:  "-7",
		},
		{
			name:  "zero",
			input: json.RawMessage(`0`),
			want:  "0",
		},
		{
			name:  "empty string",
			input: json.RawMessage(`""`),
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FlexibleStringValue(tt.input)
			if got != tt.want {
				t.Errorf("FlexibleStringValue(%s) = %q, want %q", string(tt.input), got, tt.want)
			}
		})
	}
}

func TestFlexibleFloatValue(t *testing.T) {
	tests := []struct {
		name   string
		input  json.RawMessage
		want   float64
		wantOK bool
	}{
		{
			name:   "plain number",
			input:  json.RawMessage(`85.5`),
			want:   85.5,
			wantOK: true,
		},
		{
			name:   "integer",
			input:  json.RawMessage(`70`),
			want:   70,
			wantOK: true,
		},
		{
			name:   "quoted number",
			input:  json.RawMessage(`"85"`),
			want:   85,
			wantOK: true,
		},
		{
			name:   "quoted decimal with spaces",
			input:  json.RawMessage(`" 62.5 "`),
			want:   62.5,
			wantOK: true,
		},
		{
			name:   "percent suffix",
			input:  json.RawMessage(`"85%"`),
			want:   85,
			wantOK: true,
		},
		{
			name:   "null",
			input:  json.RawMessage(`null`),
			wantOK: false,
		},
		{
			name:   "non-numeric string",
			input:  json.RawMessage(`"excellent"`),
			wantOK: false,
		},
		{
			name:   "object",
			input:  json.RawMessage(`{"score": 10}`),
			wantOK: false,
		},
		{
			name:   "empty",
			input:  nil,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FlexibleFloatValue(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("FlexibleFloatValue(%s) ok = %v, want %v", string(tt.input), ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("FlexibleFloatValue(%s) = %g, want %g", string(tt.input), got, tt.want)
			}
		})
	}
}
