package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := RegisterRequest{
		Email:    "  alice@example.com  ",
		Password: "  pass1234  ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "alice@example.com", req.Email)
	assert.Equal(t, "pass1234", req.Password)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	req := LabelPurchaseRequest{
		TrackingNumber: "TRK-001",
		Description:    "fragile <script>alert('x')</script> parcel",
	}
	SanitizeStruct(&req)

	assert.Contains(t, req.Description, "&lt;script&gt;")
	assert.NotContains(t, req.Description, "<script>")
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	s := "hello"
	SanitizeStruct(s) // should not panic
}

// --- Custom Validator tests ---

func TestSafeID_Valid(t *testing.T) {
	cases := []string{
		"TRK-001",
		"9400_1000_0000",
		"a.b.c",
		"simple123",
		"ABC-def_GHI.123",
	}
	for _, tc := range cases {
		assert.True(t, safeStringRe.MatchString(tc), "expected valid: %s", tc)
	}
}

func TestSafeID_Invalid(t *testing.T) {
	cases := []string{
		"TRK 001",     // space
		"TRK<001>",    // angle brackets
		"TRK;DROP",    // semicolon
		"",            // empty
		"hello world", // space
		"TRK\n001",    // newline
	}
	for _, tc := range cases {
		assert.False(t, safeStringRe.MatchString(tc), "expected invalid: %s", tc)
	}
}
