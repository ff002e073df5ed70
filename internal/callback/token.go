// Package callback encodes and decodes inline button payloads of the form
// verb[:qualifier]*:id.
package callback

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Sep is the fixed token delimiter
const Sep = ":"

// MaxLen is the platform limit for callback data
const MaxLen = 64

// ErrMalformed is returned for tokens that can't be decoded
var ErrMalformed = errors.New("malformed callback token")

// Token is a decoded callback payload
type Token struct {
	Verb string
	Args []string
}

// New builds a token
func New(verb string, args ...string) Token {
	return Token{Verb: verb, Args: args}
}

// Encode renders the token as callback data
func (t Token) Encode() string {
	if len(t.Args) == 0 {
		return t.Verb
	}
	return t.Verb + Sep + strings.Join(t.Args, Sep)
}

func (t Token) String() string {
	return t.Encode()
}

// Arg returns the i-th argument or an empty string
func (t Token) Arg(i int) string {
	if i < 0 || i >= len(t.Args) {
		return ""
	}
	return t.Args[i]
}

// Tail joins the arguments from i onward, so ids containing the
// delimiter survive decoding
func (t Token) Tail(i int) string {
	if i < 0 || i >= len(t.Args) {
		return ""
	}
	return strings.Join(t.Args[i:], Sep)
}

// Int64 parses the i-th argument
func (t Token) Int64(i int) (int64, error) {
	v, err := strconv.ParseInt(t.Arg(i), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: argument %d of %q is not an integer", ErrMalformed, i, t.Verb)
	}
	return v, nil
}

// Expect checks the argument count
func (t Token) Expect(n int) error {
	if len(t.Args) < n {
		return fmt.Errorf("%w: %q needs %d arguments, got %d", ErrMalformed, t.Verb, n, len(t.Args))
	}
	return nil
}

// Clean strips non-printable characters, including the form feed that
// telebot prepends to unique button ids
func Clean(data string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, strings.TrimSpace(data))
}

// Parse decodes callback data
func Parse(data string) (Token, error) {
	data = Clean(data)
	if data == "" {
		return Token{}, fmt.Errorf("%w: empty", ErrMalformed)
	}

	parts := strings.Split(data, Sep)
	verb := parts[0]
	if verb == "" || strings.ContainsAny(verb, " \t") {
		return Token{}, fmt.Errorf("%w: bad verb in %q", ErrMalformed, data)
	}
	for _, p := range parts[1:] {
		if p == "" {
			return Token{}, fmt.Errorf("%w: empty segment in %q", ErrMalformed, data)
		}
	}

	return Token{Verb: verb, Args: parts[1:]}, nil
}
