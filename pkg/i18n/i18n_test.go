// Package i18n_test provides blackbox tests for the i18n package.
package i18n_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/aept-pm/aept/pkg/i18n"
)

// TestInit verifies that Init completes without error for known and
// unknown language codes (an unsupported code falls back to English).
func TestInit(t *testing.T) {
	tests := []struct {
		name string
		lang string
	}{
		{"english explicit", "en"},
		{"empty uses system default", ""},
		{"unsupported falls back to english", "zz"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := i18n.Init(tc.lang); err != nil {
				t.Errorf("Init(%q) returned error: %v", tc.lang, err)
			}
		})
	}
}

// TestT_KnownKey verifies that a known translation key returns its English translation.
func TestT_KnownKey(t *testing.T) {
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	tests := []struct {
		id       string
		wantSubs string
	}{
		{"root.short", "package manager"},
		{"errors.lock_held", "another instance"},
		{"messages.nothing_to_do", "nothing to do"},
		{"logger.archive.warn.close_failed", "close archive"},
	}

	for _, tc := range tests {
		t.Run(tc.id, func(t *testing.T) {
			got := i18n.T(tc.id)
			if got == "" {
				t.Errorf("T(%q) = empty string, want non-empty", tc.id)
			}

			if !strings.Contains(strings.ToLower(got), strings.ToLower(tc.wantSubs)) {
				t.Errorf("T(%q) = %q, want substring %q", tc.id, got, tc.wantSubs)
			}
		})
	}
}

// TestT_UnknownKey verifies that an unknown key returns the key itself as fallback.
func TestT_UnknownKey(t *testing.T) {
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	tests := []struct {
		key string
	}{
		{"this.key.does.not.exist"},
		{"unknown.message.id"},
		{"totally_bogus_key"},
	}

	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			got := i18n.T(tc.key)
			if got != tc.key {
				t.Errorf("T(%q) = %q, want key echoed back as fallback", tc.key, got)
			}
		})
	}
}

// TestT_EmptyKey verifies that an empty key returns itself without panicking.
func TestT_EmptyKey(t *testing.T) {
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	got := i18n.T("")
	if got != "" {
		t.Errorf("T(\"\") = %q, want empty string", got)
	}
}

// TestT_WithTemplateData verifies that template data can be passed without panicking.
func TestT_WithTemplateData(t *testing.T) {
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	got := i18n.T("messages.nothing_to_do", map[string]any{"Name": "test"})
	if got == "" {
		t.Error("T with template data returned empty string, want non-empty")
	}
}

// TestCheckIntegrity verifies that the embedded locale file is self-consistent.
func TestCheckIntegrity(t *testing.T) {
	if err := i18n.CheckIntegrity(); err != nil {
		t.Errorf("CheckIntegrity() failed: %v", err)
	}
}

// TestGetMessageIDs verifies that GetMessageIDs returns a non-empty sorted list.
func TestGetMessageIDs(t *testing.T) {
	ids, err := i18n.GetMessageIDs()
	if err != nil {
		t.Fatalf("GetMessageIDs() error: %v", err)
	}

	if len(ids) == 0 {
		t.Error("GetMessageIDs() returned empty list")
	}

	for i := 1; i < len(ids); i++ {
		if ids[i] < ids[i-1] {
			t.Errorf("GetMessageIDs() is not sorted at index %d: %q < %q", i, ids[i], ids[i-1])
		}
	}

	if !slices.Contains(ids, "root.short") {
		t.Error("GetMessageIDs() result missing known key 'root.short'")
	}
}

// TestSupportedLanguages verifies that the SupportedLanguages variable contains English.
func TestSupportedLanguages(t *testing.T) {
	if !slices.Contains(i18n.SupportedLanguages, "en") {
		t.Error("SupportedLanguages does not contain 'en'")
	}
}
