package validation

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	apperrors "github.com/socialchef/clipchef/internal/errors"
)

// MaxPastedTextChars bounds the user supplied text.
const MaxPastedTextChars = 50000

// modelIDRE restricts model names because they are passed to a subprocess.
// A leading dash would read as a flag.
var modelIDRE = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// ValidateExtractRequest checks the caller-facing extraction input.
// It returns a validation *apperrors.AppError describing the first problem found.
func ValidateExtractRequest(rawURL, pastedText, modelID string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return apperrors.NewValidationError("url is required", "URL_REQUIRED", "Provide the link of a YouTube or TikTok video.")
	}

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperrors.NewValidationError("url must be an absolute http(s) URL", "URL_INVALID", "Copy the full video link, including https://.")
	}

	if utf8.RuneCountInString(pastedText) > MaxPastedTextChars {
		return apperrors.NewValidationError("pasted text is too long", "PASTED_TEXT_TOO_LONG", "Paste at most 50000 characters.")
	}

	if modelID != "" && !modelIDRE.MatchString(modelID) {
		return apperrors.NewValidationError("model id is invalid", "MODEL_ID_INVALID", "Use a model name such as base, small or medium.")
	}
	return nil
}
