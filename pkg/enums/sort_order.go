package enums

import "fmt"

// SortOrder selects ascending ("lowest") or descending ("highest") ordering.
type SortOrder string

const (
	SortNone    SortOrder = ""
	SortLowest  SortOrder = "lowest"
	SortHighest SortOrder = "highest"
)

// ParseSortOrder converts raw input into a SortOrder; empty input means no sort.
func ParseSortOrder(value string) (SortOrder, error) {
	switch SortOrder(value) {
	case SortNone, SortLowest, SortHighest:
		return SortOrder(value), nil
	}
	return "", fmt.Errorf("invalid sort order %q", value)
}
