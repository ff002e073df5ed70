package callback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "normal string",
			input:    "order_action:accept:42",
			expected: "order_action:accept:42",
		},
		{
			name:     "string with whitespace",
			input:    "  home  ",
			expected: "home",
		},
		{
			name:     "telebot unique prefix",
			input:    "\fcancel",
			expected: "cancel",
		},
		{
			name:     "string with unprintable characters",
			input:    "user_info\x00:17\x01",
			expected: "user_info:17",
		},
		{
			name:     "only whitespace",
			input:    "   ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Clean(tt.input))
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Token
		wantErr  bool
	}{
		{
			name:     "verb only",
			input:    "home",
			expected: Token{Verb: "home", Args: []string{}},
		},
		{
			name:     "order action",
			input:    "order_action:accept:42",
			expected: Token{Verb: "order_action", Args: []string{"accept", "42"}},
		},
		{
			name:     "category with spaces",
			input:    "view_category:Bevande Fredde",
			expected: Token{Verb: "view_category", Args: []string{"Bevande Fredde"}},
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "missing verb",
			input:   ":accept:42",
			wantErr: true,
		},
		{
			name:    "empty segment",
			input:   "order_action::42",
			wantErr: true,
		},
		{
			name:    "trailing delimiter",
			input:   "user_info:",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := Parse(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, tok)
		})
	}
}

func TestToken_EncodeRoundTrip(t *testing.T) {
	tok := New("item", "Panini", "Panino col lampredotto")

	parsed, err := Parse(tok.Encode())
	require.NoError(t, err)

	assert.Equal(t, "item", parsed.Verb)
	assert.Equal(t, "Panini", parsed.Arg(0))
	assert.Equal(t, "Panino col lampredotto", parsed.Tail(1))
	assert.Equal(t, "", parsed.Arg(5))
}

func TestToken_Helpers(t *testing.T) {
	tok, err := Parse("user_page:3")
	require.NoError(t, err)

	n, err := tok.Int64(0)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)

	assert.NoError(t, tok.Expect(1))
	assert.ErrorIs(t, tok.Expect(2), ErrMalformed)

	bad := New("user_info", "abc")
	_, err = bad.Int64(0)
	assert.ErrorIs(t, err, ErrMalformed)

	multi := New("item", "Extra", "a", "b")
	assert.Equal(t, "a:b", multi.Tail(1))
	assert.Equal(t, "home", New("home").Encode())
}
