package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantID  string
		wantErr bool
	}{
		{
			name:   "plain json",
			text:   `{"theme_id": "heat-pumps", "confidence": 0.9, "rationale": "r", "business_model": "services"}`,
			wantID: "heat-pumps",
		},
		{
			name:   "fenced json",
			text:   "```json\n{\"theme_id\": \"grid-flex\", \"confidence\": 0.7}\n```",
			wantID: "grid-flex",
		},
		{
			name:   "surrounding prose",
			text:   "Here is my classification:\n{\"theme_id\": \"heat-pumps\", \"confidence\": 0.8}\nLet me know if you need more.",
			wantID: "heat-pumps",
		},
		{
			name:    "missing theme_id",
			text:    `{"confidence": 0.8}`,
			wantErr: true,
		},
		{
			name:    "not json",
			text:    "I cannot classify this company.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseClassification(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ThemeID)
		})
	}
}

func TestParseClassification_ConfidenceClamped(t *testing.T) {
	got, err := parseClassification(`{"theme_id": "x", "confidence": 1.4}`)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Confidence)

	got, err = parseClassification(`{"theme_id": "x", "confidence": -0.3}`)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Confidence)
}

func TestParseVerification(t *testing.T) {
	v, err := parseVerification("```\n{\"verified\": false, \"reason\": \"sells boilers\"}\n```")
	require.NoError(t, err)
	assert.False(t, v.Verified)
	assert.Equal(t, "sells boilers", v.Reason)

	_, err = parseVerification("no json here")
	require.Error(t, err)
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme GmbH", "acme"},
		{"Acme Holdings Ltd", "acme"},
		{"Süßwasser Technik GmbH", "susswasser technik"},
		{"Smith & Sons, Inc.", "smith sons"},
		{"VoltFlex", "voltflex"},
		{"Ltd", "ltd"}, // a lone suffix is kept, never emptied
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.in), "input %q", tt.in)
	}
}
