// Package claimref builds and parses claim reference numbers of the form
// CLM-{YYYY}-{NNN}, where NNN is the registration sequence within the year.
package claimref

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// claimIDRegex matches: CLM-{YYYY}-{sequence}
// Example: CLM-2024-001
var claimIDRegex = regexp.MustCompile(`^CLM-(\d{4})-(\d{3,})$`)

var (
	ErrInvalidClaimID = errors.New("claimref: invalid claim id format")
	ErrInvalidSeq     = errors.New("claimref: sequence must be positive")
)

// Ref is a parsed claim reference.
type Ref struct {
	ID       string `json:"claimId"`
	Year     int    `json:"year"`
	Sequence int    `json:"sequence"`
}

// New formats the claim id for the seq-th claim registered in year.
func New(year, seq int) (string, error) {
	if seq < 1 {
		return "", fmt.Errorf("%w: %d", ErrInvalidSeq, seq)
	}
	if year < 1000 || year > 9999 {
		return "", fmt.Errorf("%w: year %d", ErrInvalidClaimID, year)
	}
	return fmt.Sprintf("CLM-%04d-%03d", year, seq), nil
}

// Parse parses and validates a claim id.
func Parse(id string) (*Ref, error) {
	matches := claimIDRegex.FindStringSubmatch(id)
	if matches == nil {
		return nil, fmt.Errorf("%w: %s (expected CLM-{YYYY}-{NNN})", ErrInvalidClaimID, id)
	}

	year, _ := strconv.Atoi(matches[1])
	seq, err := strconv.Atoi(matches[2])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidClaimID, id)
	}
	if seq < 1 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSeq, id)
	}

	return &Ref{ID: id, Year: year, Sequence: seq}, nil
}

// Less orders claim ids by year, then by sequence, so CLM-2024-999 comes
// before CLM-2024-1000. Ids that do not parse sort after valid ones, by text.
func Less(a, b string) bool {
	ra, errA := Parse(a)
	rb, errB := Parse(b)
	switch {
	case errA != nil && errB != nil:
		return a < b
	case errA != nil || errB != nil:
		return errA == nil
	case ra.Year != rb.Year:
		return ra.Year < rb.Year
	default:
		return ra.Sequence < rb.Sequence
	}
}
