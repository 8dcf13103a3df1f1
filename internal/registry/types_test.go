package registry

import (
	"encoding/base64"
	"testing"
)

func TestParseHashAlgorithm(t *testing.T) {
	testCases := []struct {
		raw   string
		known bool
		name  string
	}{
		{"SHA512", true, "SHA512"},
		{"sha512", true, "SHA512"},
		{"Sha512", true, "SHA512"},
		{"SHA256", false, "SHA256"},
		{"md5", false, "md5"},
		{"", false, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			alg := ParseHashAlgorithm(tc.raw)
			if alg.Known() != tc.known {
				t.Fatalf("known mismatch for %q: %v", tc.raw, alg.Known())
			}
			if alg.Name != tc.name {
				t.Fatalf("expected name %q, got %q", tc.name, alg.Name)
			}
		})
	}
}

func TestPackageDigestDecode(t *testing.T) {
	raw := []byte{0x00, 0x01, 0xfe, 0xff}
	digest := PackageDigest{Value: base64.StdEncoding.EncodeToString(raw), Algorithm: SHA512}
	decoded, err := digest.Decode()
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if string(decoded) != string(raw) {
		t.Fatalf("decoded bytes mismatch: %v", decoded)
	}

	if _, err := (PackageDigest{Value: "not base64!"}).Decode(); err == nil {
		t.Fatalf("expected decode error for invalid base64")
	}
}

func TestPackageIdentityString(t *testing.T) {
	id := PackageIdentity{Name: "WinPixEventRuntime", Version: "1.0.220124001"}
	if id.String() != "WinPixEventRuntime@1.0.220124001" {
		t.Fatalf("unexpected identity string: %s", id.String())
	}
}
