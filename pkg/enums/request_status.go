package enums

import "fmt"

// RequestStatus is the lifecycle of one asynchronous store operation.
type RequestStatus string

const (
	RequestStatusIdle      RequestStatus = "idle"
	RequestStatusLoading   RequestStatus = "loading"
	RequestStatusSucceeded RequestStatus = "succeeded"
	RequestStatusFailed    RequestStatus = "failed"
)

var validRequestStatuses = []RequestStatus{
	RequestStatusIdle,
	RequestStatusLoading,
	RequestStatusSucceeded,
	RequestStatusFailed,
}

// String implements fmt.Stringer.
func (r RequestStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RequestStatus.
func (r RequestStatus) IsValid() bool {
	for _, candidate := range validRequestStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRequestStatus converts raw input into a RequestStatus.
func ParseRequestStatus(value string) (RequestStatus, error) {
	for _, candidate := range validRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid request status %q", value)
}
