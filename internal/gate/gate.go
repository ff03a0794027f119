// Package gate decides whether a feed response changed since the previous
// poll, based on its Last-Modified or ETag header.
package gate

import (
	"net/http"

	"github.com/jacoelho/feedpoll/internal/stream"
)

const (
	// TokenCapacity is the size of the stored token, terminator slot included.
	TokenCapacity = 40

	// maxTokenLen bounds extraction; it fits a 32 character quoted ETag or
	// an HTTP date with its whitespace removed.
	maxTokenLen = 38
)

// Gate remembers the last change token seen for one target. It is not safe
// for concurrent use.
type Gate struct {
	last    *stream.Buffer
	scratch *stream.Buffer
}

func New() *Gate {
	return &Gate{
		last:    stream.NewBuffer(TokenCapacity),
		scratch: stream.NewBuffer(TokenCapacity),
	}
}

// ExtractToken normalizes a raw header value: whitespace is dropped and
// extraction stops at a carriage return or after maxTokenLen characters.
func ExtractToken(raw string) string {
	token := make([]byte, 0, maxTokenLen)
	for i := 0; i < len(raw) && len(token) < maxTokenLen; i++ {
		c := raw[i]
		if c == '\r' {
			break
		}
		if isSpace(c) {
			continue
		}
		token = append(token, c)
	}
	return string(token)
}

// ShouldParse compares token with the stored one, case-insensitively and over
// the stored token's fixed width. It returns false when they match. Otherwise
// token replaces the stored value and ShouldParse returns true.
func (g *Gate) ShouldParse(token string) bool {
	g.scratch.Set(token)
	if g.scratch.EqualFold(g.last.String()) {
		return false
	}
	g.last.CopyFrom(g.scratch)
	return true
}

// Check extracts the token for resp and applies ShouldParse. A response
// without the header reports proceed with the gate error, leaving the
// stored token untouched, since there is nothing to compare.
func (g *Gate) Check(resp *http.Response, single bool) (token string, proceed bool, err error) {
	raw, err := headerValue(resp, HeaderName(single))
	if err != nil {
		return "", true, err
	}

	token = ExtractToken(raw)
	return token, g.ShouldParse(token), nil
}

// Token returns the stored change token.
func (g *Gate) Token() string {
	return g.last.String()
}

// Reset forgets the stored token so the next response is always parsed.
func (g *Gate) Reset() {
	g.last.Reset()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\v' || c == '\f' || c == '\r'
}
