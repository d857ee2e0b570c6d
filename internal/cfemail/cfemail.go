// Package cfemail decodes the Cloudflare email-protection obfuscation used
// on rommelmarkten.be contact blocks.
//
// The scheme is a single-byte XOR cipher over hex pairs: the first pair is
// the key, each following pair XOR key is one byte of the plaintext address.
// Tokens appear either in data-cfemail attributes or after the # in
// /cdn-cgi/l/email-protection hrefs.
package cfemail

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// DecodeError reports a token that is not a valid encoding of an email
// address under the known scheme.
type DecodeError struct {
	Token  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding email token %q: %s", e.Token, e.Reason)
}

// Decode recovers the plaintext email address from an obfuscation token.
// It fails with *DecodeError when the token has an odd number of hex digits,
// holds fewer than two byte pairs, contains non-hex characters, or decodes
// to something without an @ (which means the page uses a different scheme).
func Decode(token string) (string, error) {
	if len(token)%2 != 0 {
		return "", &DecodeError{Token: token, Reason: "odd number of hex digits"}
	}
	raw, err := hex.DecodeString(token)
	if err != nil {
		return "", &DecodeError{Token: token, Reason: "not hexadecimal"}
	}
	if len(raw) < 2 {
		return "", &DecodeError{Token: token, Reason: "too short: need key byte plus at least one data byte"}
	}

	key := raw[0]
	var b strings.Builder
	b.Grow(len(raw) - 1)
	for _, c := range raw[1:] {
		b.WriteByte(c ^ key)
	}

	email := b.String()
	if !strings.Contains(email, "@") {
		return "", &DecodeError{Token: token, Reason: "decoded text is not an email address"}
	}
	return email, nil
}
