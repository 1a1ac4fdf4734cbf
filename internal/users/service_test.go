package users

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/labujaya/lastbite/internal/state"
	"github.com/labujaya/lastbite/pkg/apiclient"
	"github.com/labujaya/lastbite/pkg/enums"
	pkgerrors "github.com/labujaya/lastbite/pkg/errors"
	"github.com/labujaya/lastbite/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsersAPI struct {
	meFn             func(ctx context.Context) (*apiclient.ProfileDTO, error)
	updateMeFn       func(ctx context.Context, req apiclient.UpdateProfileRequest) (*apiclient.ProfileDTO, error)
	changePasswordFn func(ctx context.Context, req apiclient.ChangePasswordRequest) error
	changeCalls      int
}

func (f *fakeUsersAPI) Me(ctx context.Context) (*apiclient.ProfileDTO, error) {
	if f.meFn != nil {
		return f.meFn(ctx)
	}
	return &apiclient.ProfileDTO{}, nil
}

func (f *fakeUsersAPI) UpdateMe(ctx context.Context, req apiclient.UpdateProfileRequest) (*apiclient.ProfileDTO, error) {
	if f.updateMeFn != nil {
		return f.updateMeFn(ctx, req)
	}
	return &apiclient.ProfileDTO{}, nil
}

func (f *fakeUsersAPI) ChangePassword(ctx context.Context, req apiclient.ChangePasswordRequest) error {
	f.changeCalls++
	if f.changePasswordFn != nil {
		return f.changePasswordFn(ctx, req)
	}
	return nil
}

type fakeUploader struct {
	uploadFn func(ctx context.Context, filename string, content io.Reader) (*apiclient.UploadResult, error)
}

func (f *fakeUploader) UploadImage(ctx context.Context, filename string, content io.Reader) (*apiclient.UploadResult, error) {
	return f.uploadFn(ctx, filename, content)
}

func newTestService(t *testing.T, api *fakeUsersAPI, uploader imageUploader) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{API: api, Uploader: uploader, Hub: state.NewHub()})
	require.NoError(t, err)
	return svc
}

func apiFailure(status int, message string) error {
	return pkgerrors.Wrap(pkgerrors.CodeForStatus(status), &apiclient.APIError{StatusCode: status, Message: message}, "request failed")
}

func TestFetchMeStoresProfile(t *testing.T) {
	lat, lon := -6.2, 106.8
	api := &fakeUsersAPI{meFn: func(context.Context) (*apiclient.ProfileDTO, error) {
		return &apiclient.ProfileDTO{ID: "42", Username: "budi", FullName: "Budi Santoso", Latitude: &lat, Longitude: &lon}, nil
	}}
	svc := newTestService(t, api, nil)

	profile, err := svc.FetchMe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.ID("42"), profile.ID)

	snap := svc.Snapshot()
	require.NotNil(t, snap.User)
	assert.Equal(t, "budi", snap.User.Username)
	assert.Equal(t, enums.RequestStatusSucceeded, snap.Fetch.Status)

	coords, ok := snap.User.Coordinates()
	require.True(t, ok)
	assert.Equal(t, types.Coordinates{Latitude: -6.2, Longitude: 106.8}, coords)

	*snap.User.Latitude = 0
	again := svc.Snapshot()
	assert.Equal(t, -6.2, *again.User.Latitude)
}

func TestFetchMeFailureDropsProfile(t *testing.T) {
	calls := 0
	api := &fakeUsersAPI{meFn: func(context.Context) (*apiclient.ProfileDTO, error) {
		calls++
		if calls == 1 {
			return &apiclient.ProfileDTO{ID: "1"}, nil
		}
		return nil, apiFailure(500, "")
	}}
	svc := newTestService(t, api, nil)

	_, err := svc.FetchMe(context.Background())
	require.NoError(t, err)
	_, err = svc.FetchMe(context.Background())
	require.Error(t, err)

	snap := svc.Snapshot()
	assert.Nil(t, snap.User)
	assert.Equal(t, enums.RequestStatusFailed, snap.Fetch.Status)
	assert.Equal(t, "Failed to fetch user data", snap.Fetch.Error)
}

func TestUpdateLocationSendsCoordinatesOnly(t *testing.T) {
	api := &fakeUsersAPI{updateMeFn: func(_ context.Context, req apiclient.UpdateProfileRequest) (*apiclient.ProfileDTO, error) {
		require.NotNil(t, req.Latitude)
		require.NotNil(t, req.Longitude)
		assert.Nil(t, req.Username)
		assert.Nil(t, req.ProfileImageURL)
		return &apiclient.ProfileDTO{ID: "1", Latitude: req.Latitude, Longitude: req.Longitude}, nil
	}}
	svc := newTestService(t, api, nil)

	profile, err := svc.UpdateLocation(context.Background(), types.Coordinates{Latitude: 1.5, Longitude: 2.5})
	require.NoError(t, err)
	assert.Equal(t, 1.5, *profile.Latitude)
	assert.Equal(t, enums.RequestStatusSucceeded, svc.Snapshot().Update.Status)
}

func TestUpdateMeFailureKeepsServerMessage(t *testing.T) {
	api := &fakeUsersAPI{updateMeFn: func(context.Context, apiclient.UpdateProfileRequest) (*apiclient.ProfileDTO, error) {
		return nil, apiFailure(409, "Username sudah digunakan")
	}}
	svc := newTestService(t, api, nil)

	name := "taken"
	_, err := svc.UpdateMe(context.Background(), apiclient.UpdateProfileRequest{Username: &name})
	require.Error(t, err)
	snap := svc.Snapshot()
	assert.Equal(t, enums.RequestStatusFailed, snap.Update.Status)
	assert.Equal(t, "Username sudah digunakan", snap.Update.Error)
	assert.Equal(t, enums.RequestStatusIdle, snap.Fetch.Status)
}

func TestChangePasswordValidatesBeforeCalling(t *testing.T) {
	api := &fakeUsersAPI{}
	svc := newTestService(t, api, nil)

	err := svc.ChangePassword(context.Background(), apiclient.ChangePasswordRequest{
		OldPassword:        "old-secret",
		NewPassword:        "new-secret-1",
		ConfirmNewPassword: "new-secret-2",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Zero(t, api.changeCalls)
	assert.Equal(t, enums.RequestStatusFailed, svc.Snapshot().ChangePassword.Status)
}

func TestChangePasswordFallbackMessage(t *testing.T) {
	api := &fakeUsersAPI{changePasswordFn: func(context.Context, apiclient.ChangePasswordRequest) error {
		return apiFailure(500, "")
	}}
	svc := newTestService(t, api, nil)

	err := svc.ChangePassword(context.Background(), apiclient.ChangePasswordRequest{
		OldPassword:        "old-secret",
		NewPassword:        "new-secret-1",
		ConfirmNewPassword: "new-secret-1",
	})
	require.Error(t, err)
	assert.Equal(t, 1, api.changeCalls)
	assert.Equal(t, "Failed to change user password", svc.Snapshot().ChangePassword.Error)
}

func TestUploadProfileImagePointsProfileAtUpload(t *testing.T) {
	api := &fakeUsersAPI{updateMeFn: func(_ context.Context, req apiclient.UpdateProfileRequest) (*apiclient.ProfileDTO, error) {
		require.NotNil(t, req.ProfileImageURL)
		return &apiclient.ProfileDTO{ID: "1", ProfileImageURL: *req.ProfileImageURL}, nil
	}}
	uploader := &fakeUploader{uploadFn: func(_ context.Context, filename string, content io.Reader) (*apiclient.UploadResult, error) {
		assert.Equal(t, "me.png", filename)
		data, err := io.ReadAll(content)
		require.NoError(t, err)
		assert.Equal(t, "image-bytes", string(data))
		return &apiclient.UploadResult{URL: "https://cdn.example.com/me.png"}, nil
	}}
	svc := newTestService(t, api, uploader)

	profile, err := svc.UploadProfileImage(context.Background(), "me.png", strings.NewReader("image-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/me.png", profile.ProfileImageURL)
	assert.Equal(t, "https://cdn.example.com/me.png", svc.Snapshot().User.ProfileImageURL)
}

func TestClearResetsState(t *testing.T) {
	svc := newTestService(t, &fakeUsersAPI{}, nil)
	_, err := svc.FetchMe(context.Background())
	require.NoError(t, err)

	svc.Clear()
	snap := svc.Snapshot()
	assert.Nil(t, snap.User)
	assert.Equal(t, enums.RequestStatusIdle, snap.Fetch.Status)
}

func TestNewServiceRequiresAPI(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}
