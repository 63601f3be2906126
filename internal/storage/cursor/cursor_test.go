package cursor

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	minted := NewNextPage(42, "sess-1")

	token, err := Encode(minted)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}

	decoded, err := Decode(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Seq != 42 {
		t.Fatalf("seq = %d, want 42", decoded.Seq)
	}
	if decoded.Scope != minted.Scope {
		t.Fatalf("scope = %q, want %q", decoded.Scope, minted.Scope)
	}
	if err := ValidateScope(decoded, "sess-1"); err != nil {
		t.Fatalf("validate scope: %v", err)
	}
}

func TestDecodeRejectsMalformedTokens(t *testing.T) {
	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"bad base64", "not-a-token"},
		{"not json", base64.URLEncoding.EncodeToString([]byte("banana"))},
		{"negative seq", base64.URLEncoding.EncodeToString([]byte(`{"seq":-5}`))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode(tc.token); err == nil {
				t.Fatalf("expected error for token %q", tc.token)
			}
		})
	}
}

func TestValidateScopeMismatch(t *testing.T) {
	minted := NewNextPage(7, "sess-1")

	err := ValidateScope(minted, "sess-2")
	if err == nil {
		t.Fatal("expected scope mismatch error")
	}
	if !strings.Contains(err.Error(), "scope") {
		t.Fatalf("err = %v, want scope mismatch", err)
	}
}

func TestHashScopeEmpty(t *testing.T) {
	if got := HashScope(""); got != "" {
		t.Fatalf("hash of empty scope = %q, want empty", got)
	}
	if HashScope("sess-1") == HashScope("sess-2") {
		t.Fatal("distinct scopes should hash differently")
	}
}
