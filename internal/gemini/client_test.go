package gemini

import (
	"fmt"
	"strings"
	"testing"
)

func TestSanitizeCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want string
	}{
		{"ko", "ko"},
		{"KO", "ko"},
		{" ja \n", "ja"},
		{"'en'", "en"},
		{"fr.", "fr"},
		{"ko (Korean)", "ko"},
		{"korean", ""},
		{"k", ""},
		{"", ""},
		{"12", ""},
	}
	for _, tc := range cases {
		if got := sanitizeCode(tc.raw); got != tc.want {
			t.Fatalf("sanitizeCode(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestVisionPromptSubstitutesOnlyLanguage(t *testing.T) {
	t.Parallel()

	prompt := fmt.Sprintf(visionPromptFmt, "ko")
	if !strings.Contains(prompt, "language code: ko") {
		t.Fatalf("prompt missing language tag: %s", prompt)
	}
	if strings.Contains(prompt, "%s") {
		t.Fatal("prompt has an unsubstituted parameter")
	}
	if !strings.Contains(prompt, "If it is NOT a landmark, state that clearly and describe what you see.") {
		t.Fatal("prompt lost the not-a-landmark instruction")
	}
}
