// Package sanitizer renders request and response heads for debug logs with
// API keys replaced by a salted hash, so runs can be correlated without
// exposing the key.
package sanitizer

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httputil"
)

// DumpRequest dumps the request line and headers with secrets redacted.
func DumpRequest(req *http.Request, secrets []string, salt string) ([]byte, error) {
	dump, err := httputil.DumpRequestOut(req, false)
	if err != nil {
		return nil, fmt.Errorf("failed to dump request: %w", err)
	}

	return Redact(dump, secrets, salt), nil
}

// DumpResponseHead dumps the status line and headers with secrets
// redacted. The body is not touched.
func DumpResponseHead(resp *http.Response, secrets []string, salt string) ([]byte, error) {
	dump, err := httputil.DumpResponse(resp, false)
	if err != nil {
		return nil, fmt.Errorf("failed to dump response: %w", err)
	}

	return Redact(dump, secrets, salt), nil
}

// Redact replaces every occurrence of each non-empty secret in data with
// [S256:hash]. data is returned unchanged when nothing matches.
func Redact(data []byte, secrets []string, salt string) []byte {
	if len(secrets) == 0 || len(data) == 0 {
		return data
	}

	var out []byte
	changed := false

	for _, s := range secrets {
		if s == "" {
			continue
		}
		needle := []byte(s)

		if !bytes.Contains(data, needle) {
			continue
		}
		if !changed {
			out = make([]byte, len(data))
			copy(out, data)
			changed = true
		}

		out = bytes.ReplaceAll(out, needle, hashToken(s, salt))
	}
	if changed {
		return out
	}
	return data
}

func hashToken(secret, salt string) []byte {
	sum := sha256.Sum256([]byte(salt + secret))
	return []byte("[S256:" + hex.EncodeToString(sum[:8]) + "]")
}
