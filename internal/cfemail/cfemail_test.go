package cfemail

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// encode builds a token the way the site does: key pair first, then each
// plaintext byte XOR key. Test-only inverse of Decode.
func encode(key byte, email string) string {
	raw := make([]byte, 0, len(email)+1)
	raw = append(raw, key)
	for i := 0; i < len(email); i++ {
		raw = append(raw, email[i]^key)
	}
	return hex.EncodeToString(raw)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		want    string
		wantErr bool
	}{
		{
			name:  "known token",
			token: "2c4d6c4e024f",
			want:  "a@b.c",
		},
		{
			name:  "uppercase hex accepted",
			token: "2C4D6C4E024F",
			want:  "a@b.c",
		},
		{
			name:    "key pair only",
			token:   "29",
			wantErr: true,
		},
		{
			name:    "empty token",
			token:   "",
			wantErr: true,
		},
		{
			name:    "odd number of hex digits",
			token:   "2c4d6",
			wantErr: true,
		},
		{
			name:    "non-hex characters",
			token:   "2czz6c4e",
			wantErr: true,
		},
		{
			name:    "decodes but is not an email",
			token:   "2c57515954", // yields "{}ux", no @
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.token)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Decode(%q) = %q, expected error", tt.token, got)
				}
				var decodeErr *DecodeError
				if !errors.As(err, &decodeErr) {
					t.Errorf("Decode(%q) error = %T, want *DecodeError", tt.token, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode(%q) unexpected error: %v", tt.token, err)
			}
			if got != tt.want {
				t.Errorf("Decode(%q) = %q, want %q", tt.token, got, tt.want)
			}
		})
	}
}

func TestDecode_RealWorldToken(t *testing.T) {
	// Token built by the reference encoder for a typical organizer address.
	token := encode(0x5a, "info@rommelmarkten.be")
	got, err := Decode(token)
	if err != nil {
		t.Fatalf("Decode(%q) unexpected error: %v", token, err)
	}
	if got != "info@rommelmarkten.be" {
		t.Errorf("Decode(%q) = %q, want info@rommelmarkten.be", token, got)
	}
}

func TestProperty_DecodeRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	// Any ASCII address encoded with any key byte must round-trip exactly.
	properties.Property("decode inverts encode for any key and address", prop.ForAll(
		func(key uint8, local, domain string) bool {
			email := local + "@" + domain
			decoded, err := Decode(encode(key, email))
			return err == nil && decoded == email
		},
		gen.UInt8(),
		gen.RegexMatch(`[a-z0-9._%+\-]{1,20}`),
		gen.RegexMatch(`[a-z0-9\-]{1,15}\.[a-z]{2,4}`),
	))

	// Decoding is deterministic: two decodes of the same token agree.
	properties.Property("decode is deterministic", prop.ForAll(
		func(key uint8, local string) bool {
			token := encode(key, local+"@x.be")
			first, err1 := Decode(token)
			second, err2 := Decode(token)
			return err1 == nil && err2 == nil && first == second
		},
		gen.UInt8(),
		gen.RegexMatch(`[a-z]{1,12}`),
	))

	properties.TestingRun(t)
}
