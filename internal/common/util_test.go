package common

import (
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
)

func TestMakeRandHexString_LengthAndHex(t *testing.T) {
	const n = 32
	s, err := MakeRandHexString(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s) != n*2 {
		t.Fatalf("expected hex length %d, got %d", n*2, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		t.Fatalf("string is not valid hex: %v", err)
	}
}

func TestMakeRandHexString_ZeroSize(t *testing.T) {
	s, err := MakeRandHexString(0)
	if err != nil {
		t.Fatalf("unexpected error for size=0: %v", err)
	}
	if s != "" {
		t.Fatalf("expected empty string for size=0, got %q", s)
	}
}

func TestMakeRandHexString_Distinct(t *testing.T) {
	seen := make(map[string]struct{}, 100)
	for i := 0; i < 100; i++ {
		s, err := MakeRandHexString(32)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, dup := seen[s]; dup {
			t.Fatalf("duplicate random value %q", s)
		}
		seen[s] = struct{}{}
	}
}

func TestGenerateRandByteArray_Basic(t *testing.T) {
	const n = 24
	buf := GenerateRandByteArray(n)
	if len(buf) != n {
		t.Fatalf("expected length %d, got %d", n, len(buf))
	}
}

func TestFingerprint_StableAndShort(t *testing.T) {
	a := Fingerprint("token-value")
	b := Fingerprint("token-value")
	if a != b {
		t.Fatalf("fingerprint not stable: %q vs %q", a, b)
	}
	if len(a) != 12 {
		t.Fatalf("expected 12 hex chars, got %d", len(a))
	}
	if a == Fingerprint("other-value") {
		t.Fatalf("different inputs produced the same fingerprint")
	}
}

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("expected buf[%d]==0, got %d", i, v)
		}
	}
	WipeByteArray(nil)
}

func TestIsAuthenticationFailure(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrInvalidCredentials, true},
		{fmt.Errorf("refresh: %w", ErrTokenInactive), true},
		{ErrTokenNotFound, true},
		{ErrSignatureInvalid, true},
		{ErrIssuerMismatch, true},
		{ErrMissingOrMalformedToken, true},
		{ErrPolicyDenied, false},
		{ErrStorageFailure, false},
		{errors.New("boom"), false},
	}
	for _, tc := range tests {
		if got := IsAuthenticationFailure(tc.err); got != tc.want {
			t.Errorf("IsAuthenticationFailure(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
