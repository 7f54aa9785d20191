package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		marker string
		want   string
		wantOK bool
	}{
		{
			name:   "brace inside quoted string",
			input:  `<script>marker{"a":"b{c}","d":1} trailing } } {x}</script>`,
			marker: "marker",
			want:   `{"a":"b{c}","d":1}`,
			wantOK: true,
		},
		{
			name:   "escaped quote inside string",
			input:  `var ytInitialPlayerResponse = {"t":"say \"}\" now","n":{"m":[1,2]}};var other = {};`,
			marker: "ytInitialPlayerResponse",
			want:   `{"t":"say \"}\" now","n":{"m":[1,2]}}`,
			wantOK: true,
		},
		{
			name:   "escaped backslash before closing quote",
			input:  `m = {"p":"C:\\","q":"}"} }`,
			marker: "m",
			want:   `{"p":"C:\\","q":"}"}`,
			wantOK: true,
		},
		{
			name:   "missing marker",
			input:  `{"a":1}`,
			marker: "marker",
			wantOK: false,
		},
		{
			name:   "no opening brace",
			input:  `marker = null;`,
			marker: "marker",
			wantOK: false,
		},
		{
			name:   "unbalanced",
			input:  `marker{"a":{"b":1}`,
			marker: "marker",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSONObject(tt.input, tt.marker)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
