package apperrors

import (
	"errors"
	"testing"
)

func TestNew_ErrorString(t *testing.T) {
	err := New(KindInvalidCandidate, "empty natural key")
	want := "invalid_candidate: empty natural key"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWithDetails_ErrorString(t *testing.T) {
	err := New(KindInvalidCandidate, "empty natural key").WithDetails("source=rss1")
	want := "invalid_candidate: empty natural key (source=rss1)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWrap_UnwrapsToCause(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := Wrap(cause, KindStorageError, "insert failed")

	if !errors.Is(wrapped, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
	if wrapped.Cause != cause {
		t.Errorf("Cause = %v, want %v", wrapped.Cause, cause)
	}
}

func TestIs_MatchesSentinelByKind(t *testing.T) {
	err := Wrap(errors.New("pg: unique violation"), KindDuplicateNaturalKey, "natural key race")

	if !errors.Is(err, ErrDuplicateNaturalKey) {
		t.Error("expected errors.Is to match the sentinel for the error's Kind")
	}
	if errors.Is(err, ErrStorageError) {
		t.Error("did not expect a match against an unrelated sentinel")
	}
}

func TestKindOf(t *testing.T) {
	err := New(KindInvalidPromotion, "cannot demote")
	kind, ok := KindOf(err)
	if !ok || kind != KindInvalidPromotion {
		t.Errorf("KindOf() = (%v, %v), want (%v, true)", kind, ok, KindInvalidPromotion)
	}

	if _, ok := KindOf(errors.New("plain error")); ok {
		t.Error("expected KindOf to report false for a non-AppError")
	}
}
