// Package users holds the signed-in user's profile.
package users

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/labujaya/lastbite/internal/state"
	"github.com/labujaya/lastbite/pkg/apiclient"
	"github.com/labujaya/lastbite/pkg/logger"
	"github.com/labujaya/lastbite/pkg/types"
	"github.com/labujaya/lastbite/pkg/validate"
)

const (
	storeName                   = "users"
	fetchFailedMessage          = "Failed to fetch user data"
	updateFailedMessage         = "Failed to update user data"
	changePasswordFailedMessage = "Failed to change user password"
	uploadFailedMessage         = "Failed to upload profile image"
)

type usersAPI interface {
	Me(ctx context.Context) (*apiclient.ProfileDTO, error)
	UpdateMe(ctx context.Context, req apiclient.UpdateProfileRequest) (*apiclient.ProfileDTO, error)
	ChangePassword(ctx context.Context, req apiclient.ChangePasswordRequest) error
}

type imageUploader interface {
	UploadImage(ctx context.Context, filename string, content io.Reader) (*apiclient.UploadResult, error)
}

// Snapshot is a copy of the profile state. Fetch is the general status;
// Update and ChangePassword track their own operations.
type Snapshot struct {
	User           *Profile    `json:"user"`
	Fetch          state.Track `json:"fetch"`
	Update         state.Track `json:"update"`
	ChangePassword state.Track `json:"changePassword"`
}

type ServiceParams struct {
	API      usersAPI
	Uploader imageUploader
	Hub      *state.Hub
	Logger   *logger.Logger
}

type Service struct {
	api      usersAPI
	uploader imageUploader
	hub      *state.Hub
	logger   *logger.Logger

	mu    sync.RWMutex
	state Snapshot
}

func NewService(params ServiceParams) (*Service, error) {
	if params.API == nil {
		return nil, fmt.Errorf("users api is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	svc := &Service{
		api:      params.API,
		uploader: params.Uploader,
		hub:      params.Hub,
		logger:   logg,
	}
	svc.state = initialState()
	return svc, nil
}

func initialState() Snapshot {
	return Snapshot{Fetch: state.Idle(), Update: state.Idle(), ChangePassword: state.Idle()}
}

func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.state
	if snap.User != nil {
		user := snap.User.clone()
		snap.User = &user
	}
	return snap
}

func (s *Service) update(op string, fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
	s.hub.Publish(state.Change{Store: storeName, Op: op})
}

// FetchMe loads the profile. A failure drops any previously loaded profile.
func (s *Service) FetchMe(ctx context.Context) (*Profile, error) {
	s.update("fetch", func(st *Snapshot) { st.Fetch.Begin() })
	dto, err := s.api.Me(ctx)
	if err != nil {
		message := apiclient.ErrorMessage(err, fetchFailedMessage)
		s.update("fetch", func(st *Snapshot) {
			st.Fetch.Fail(message)
			st.User = nil
		})
		return nil, err
	}
	profile := toProfile(dto)
	s.update("fetch", func(st *Snapshot) {
		st.Fetch.Succeed()
		st.User = &profile
	})
	out := profile.clone()
	return &out, nil
}

// UpdateMe sends a partial profile update and stores the returned profile.
func (s *Service) UpdateMe(ctx context.Context, req apiclient.UpdateProfileRequest) (*Profile, error) {
	s.update("update", func(st *Snapshot) { st.Update.Begin() })
	err := validate.Struct(req)
	var dto *apiclient.ProfileDTO
	if err == nil {
		dto, err = s.api.UpdateMe(ctx, req)
	}
	if err != nil {
		message := apiclient.ErrorMessage(err, updateFailedMessage)
		s.update("update", func(st *Snapshot) { st.Update.Fail(message) })
		return nil, err
	}
	profile := toProfile(dto)
	s.update("update", func(st *Snapshot) {
		st.Update.Succeed()
		st.User = &profile
	})
	out := profile.clone()
	return &out, nil
}

// UpdateLocation updates only the saved coordinates.
func (s *Service) UpdateLocation(ctx context.Context, coords types.Coordinates) (*Profile, error) {
	lat, lon := coords.Latitude, coords.Longitude
	return s.UpdateMe(ctx, apiclient.UpdateProfileRequest{Latitude: &lat, Longitude: &lon})
}

func (s *Service) ChangePassword(ctx context.Context, req apiclient.ChangePasswordRequest) error {
	s.update("changePassword", func(st *Snapshot) { st.ChangePassword.Begin() })
	err := validate.Struct(req)
	if err == nil {
		err = s.api.ChangePassword(ctx, req)
	}
	if err != nil {
		message := apiclient.ErrorMessage(err, changePasswordFailedMessage)
		s.update("changePassword", func(st *Snapshot) { st.ChangePassword.Fail(message) })
		return err
	}
	s.update("changePassword", func(st *Snapshot) { st.ChangePassword.Succeed() })
	return nil
}

// UploadProfileImage uploads an image and points the profile at it.
func (s *Service) UploadProfileImage(ctx context.Context, filename string, content io.Reader) (*Profile, error) {
	if s.uploader == nil {
		return nil, fmt.Errorf("image uploader is not configured")
	}
	s.update("update", func(st *Snapshot) { st.Update.Begin() })
	result, err := s.uploader.UploadImage(ctx, filename, content)
	if err != nil {
		message := apiclient.ErrorMessage(err, uploadFailedMessage)
		s.update("update", func(st *Snapshot) { st.Update.Fail(message) })
		return nil, err
	}
	url := result.URL
	return s.UpdateMe(ctx, apiclient.UpdateProfileRequest{ProfileImageURL: &url})
}

// Clear drops the profile and resets every track, used on logout.
func (s *Service) Clear() {
	s.update("clear", func(st *Snapshot) { *st = initialState() })
}
