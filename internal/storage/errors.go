package storage

import "github.com/feedspine/feedspine/internal/apperrors"

// ErrNotFound is returned when a lookup finds no matching record.
var ErrNotFound = apperrors.New(apperrors.KindStorageError, "record not found")

// ErrAlreadyExists is returned by Insert when the natural key is already
// present.
var ErrAlreadyExists = apperrors.New(apperrors.KindDuplicateNaturalKey, "natural key already exists")
