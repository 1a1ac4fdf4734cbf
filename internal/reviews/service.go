// Package reviews submits and lists menu item reviews.
package reviews

import (
	"context"
	"fmt"
	"sync"

	"github.com/labujaya/lastbite/internal/state"
	"github.com/labujaya/lastbite/pkg/apiclient"
	"github.com/labujaya/lastbite/pkg/logger"
	"github.com/labujaya/lastbite/pkg/types"
	"github.com/labujaya/lastbite/pkg/validate"
)

const (
	storeName = "reviews"

	submitFailedMessage = "failed to submit review"
	fetchFailedMessage  = "failed to load reviews"
)

type reviewsAPI interface {
	Submit(ctx context.Context, req apiclient.SubmitReviewRequest) (*apiclient.ReviewDTO, error)
	ListByMenuItem(ctx context.Context, menuItemID types.ID) ([]apiclient.ReviewDTO, error)
}

type Review struct {
	ID              types.ID `json:"id"`
	MenuItemID      types.ID `json:"menuItemId"`
	CustomerName    string   `json:"customerName"`
	ProfileImageURL string   `json:"profileImageUrl,omitempty"`
	Rating          int      `json:"rating"`
	Comment         string   `json:"comment"`
	CreatedAt       string   `json:"createdAt"`
}

func toReview(dto apiclient.ReviewDTO) Review {
	return Review{
		ID:              dto.ID,
		MenuItemID:      dto.MenuItemID,
		CustomerName:    dto.CustomerName,
		ProfileImageURL: dto.ProfileImageURL,
		Rating:          dto.Rating,
		Comment:         dto.Comment,
		CreatedAt:       dto.CreatedAt,
	}
}

type Snapshot struct {
	Reviews      []Review    `json:"reviews"`
	LatestReview *Review     `json:"latestReview"`
	Submit       state.Track `json:"submit"`
	Fetch        state.Track `json:"fetch"`
}

type ServiceParams struct {
	API    reviewsAPI
	Hub    *state.Hub
	Logger *logger.Logger
}

type Service struct {
	api    reviewsAPI
	hub    *state.Hub
	logger *logger.Logger

	mu    sync.RWMutex
	state Snapshot
}

func NewService(params ServiceParams) (*Service, error) {
	if params.API == nil {
		return nil, fmt.Errorf("reviews api is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		api:    params.API,
		hub:    params.Hub,
		logger: logg,
		state:  Snapshot{Submit: state.Idle(), Fetch: state.Idle()},
	}, nil
}

func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.state
	snap.Reviews = append([]Review(nil), s.state.Reviews...)
	if s.state.LatestReview != nil {
		latest := *s.state.LatestReview
		snap.LatestReview = &latest
	}
	return snap
}

func (s *Service) update(op string, fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
	s.hub.Publish(state.Change{Store: storeName, Op: op})
}

func (s *Service) Submit(ctx context.Context, req apiclient.SubmitReviewRequest) (*Review, error) {
	req.Comment = validate.SanitizeString(req.Comment, 1000)
	s.update("submit", func(st *Snapshot) { st.Submit.Begin() })
	err := validate.Struct(req)
	var dto *apiclient.ReviewDTO
	if err == nil {
		dto, err = s.api.Submit(ctx, req)
	}
	if err != nil {
		message := apiclient.ErrorMessage(err, submitFailedMessage)
		s.update("submit", func(st *Snapshot) { st.Submit.Fail(message) })
		return nil, err
	}
	review := toReview(*dto)
	s.update("submit", func(st *Snapshot) {
		st.Submit.Succeed()
		latest := review
		st.LatestReview = &latest
	})
	return &review, nil
}

func (s *Service) FetchByMenuItem(ctx context.Context, menuItemID types.ID) ([]Review, error) {
	s.update("fetch", func(st *Snapshot) { st.Fetch.Begin() })
	err := validate.Var("menuItemId", menuItemID.String(), "required")
	var dtos []apiclient.ReviewDTO
	if err == nil {
		dtos, err = s.api.ListByMenuItem(ctx, menuItemID)
	}
	if err != nil {
		message := apiclient.ErrorMessage(err, fetchFailedMessage)
		s.update("fetch", func(st *Snapshot) { st.Fetch.Fail(message) })
		return nil, err
	}
	reviews := make([]Review, 0, len(dtos))
	for _, dto := range dtos {
		reviews = append(reviews, toReview(dto))
	}
	s.update("fetch", func(st *Snapshot) {
		st.Fetch.Succeed()
		st.Reviews = reviews
	})
	return append([]Review(nil), reviews...), nil
}

// ResetSubmitStatus clears the submit track and the latest review.
func (s *Service) ResetSubmitStatus() {
	s.update("reset", func(st *Snapshot) {
		st.Submit.Reset()
		st.LatestReview = nil
	})
}

// AverageRating is the mean rating of the loaded reviews, 0 when none.
func (s *Service) AverageRating() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.state.Reviews) == 0 {
		return 0
	}
	total := 0
	for _, review := range s.state.Reviews {
		total += review.Rating
	}
	return float64(total) / float64(len(s.state.Reviews))
}
