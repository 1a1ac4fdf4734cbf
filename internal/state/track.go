// Package state holds the request lifecycle tracker shared by every store
// and the hub stores publish their changes on.
package state

import "github.com/labujaya/lastbite/pkg/enums"

// Track is the lifecycle of one kind of operation: idle, loading, then
// succeeded or failed. Error is set only while failed.
type Track struct {
	Status enums.RequestStatus `json:"status"`
	Error  string              `json:"error,omitempty"`
}

// Idle returns a track in its initial state.
func Idle() Track {
	return Track{Status: enums.RequestStatusIdle}
}

func (t *Track) Begin() {
	t.Status = enums.RequestStatusLoading
	t.Error = ""
}

func (t *Track) Succeed() {
	t.Status = enums.RequestStatusSucceeded
	t.Error = ""
}

func (t *Track) Fail(message string) {
	t.Status = enums.RequestStatusFailed
	t.Error = message
}

func (t *Track) Reset() {
	*t = Idle()
}

func (t Track) Loading() bool {
	return t.Status == enums.RequestStatusLoading
}

func (t Track) Failed() bool {
	return t.Status == enums.RequestStatusFailed
}

func (t Track) Succeeded() bool {
	return t.Status == enums.RequestStatusSucceeded
}
