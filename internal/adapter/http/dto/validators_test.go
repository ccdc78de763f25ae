package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := RegisterGuardianRequest{
		Name:     "  Alice Nguyen  ",
		Email:    "  alice@example.com  ",
		Password: "  pass1234  ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "Alice Nguyen", req.Name)
	assert.Equal(t, "alice@example.com", req.Email)
	assert.Equal(t, "pass1234", req.Password)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	reason := "lunch <script>alert('x')</script> money"
	req := CreateMoneyRequest{
		Reason: reason,
	}
	SanitizeStruct(&req)

	assert.Contains(t, req.Reason, "&lt;script&gt;")
	assert.NotContains(t, req.Reason, "<script>")
}

func TestSanitizeStruct_HandlesPointerString(t *testing.T) {
	menuItem := "  item-042  "
	req := ChargeItemRequest{
		Name:       "Banh mi",
		MenuItemID: &menuItem,
		Quantity:   1,
	}
	SanitizeStruct(&req)

	assert.Equal(t, "item-042", *req.MenuItemID)
}

func TestSanitizeStruct_NilPointerIsNoOp(t *testing.T) {
	req := ChargeItemRequest{
		Name:     "Pho",
		Quantity: 1,
	}
	SanitizeStruct(&req)
	assert.Nil(t, req.MenuItemID)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	s := "hello"
	SanitizeStruct(s) // should not panic
}

// --- Custom Validator tests ---

func TestSafeID_Valid(t *testing.T) {
	cases := []string{
		"STU-001",
		"STU_002",
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
		"STU 001",     // space
		"STU<001>",    // angle brackets
		"STU;DROP",    // semicolon
		"",            // empty
		"hello world", // space
		"STU\n001",    // newline
	}
	for _, tc := range cases {
		assert.False(t, safeStringRe.MatchString(tc), "expected invalid: %s", tc)
	}
}

func TestPIN_Valid(t *testing.T) {
	cases := []string{"1234", "12345", "123456", "0000"}
	for _, tc := range cases {
		assert.True(t, pinRe.MatchString(tc), "expected valid: %s", tc)
	}
}

func TestPIN_Invalid(t *testing.T) {
	cases := []string{"123", "1234567", "12ab", "12 34", "", "12.4"}
	for _, tc := range cases {
		assert.False(t, pinRe.MatchString(tc), "expected invalid: %s", tc)
	}
}
