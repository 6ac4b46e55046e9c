package model

import (
	"strings"

	"github.com/feedspine/feedspine/internal/apperrors"
)

func errInvalidCandidate(msg string) error {
	return apperrors.New(apperrors.KindInvalidCandidate, msg)
}

func errInvalidCandidatef(format string, args ...any) error {
	return apperrors.Newf(apperrors.KindInvalidCandidate, format, args...)
}

// NormalizeNaturalKey trims surrounding whitespace and folds to lower
// case. Natural keys are always stored and compared in this normalized
// form; equality of candidates uses the normalized form only.
func NormalizeNaturalKey(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
