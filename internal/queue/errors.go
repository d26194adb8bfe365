package queue

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrInvalidBranch is returned before any store is touched.
	ErrInvalidBranch = errors.New("invalid branch id")

	// ErrStoreUnavailable wraps every failure of the backing store.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Branch ids end up inside storage keys, so keep them to a safe alphabet.
var branchPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

func ValidateBranch(branchID string) error {
	if !branchPattern.MatchString(branchID) {
		return fmt.Errorf("%w: %q", ErrInvalidBranch, branchID)
	}
	return nil
}

// Unavailable wraps a backend error so callers can match it with errors.Is.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}
