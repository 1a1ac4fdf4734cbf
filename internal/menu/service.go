// Package menu holds the menu items near the customer and the home screen
// selectors over them.
package menu

import (
	"context"
	"fmt"
	"sync"

	"github.com/labujaya/lastbite/internal/state"
	"github.com/labujaya/lastbite/pkg/apiclient"
	"github.com/labujaya/lastbite/pkg/logger"
	"github.com/labujaya/lastbite/pkg/types"
	"github.com/labujaya/lastbite/pkg/validate"
	"github.com/shopspring/decimal"
)

const (
	storeName          = "menu"
	fetchFailedMessage = "failed to load menu"
)

type menuAPI interface {
	List(ctx context.Context, coords types.Coordinates) ([]apiclient.MenuItemDTO, error)
}

type Item struct {
	ID          types.ID          `json:"id"`
	Name        string            `json:"name"`
	StoreName   string            `json:"storeName"`
	Description string            `json:"description"`
	Image       string            `json:"image"`
	Price       decimal.Decimal   `json:"price"`
	OldPrice    decimal.Decimal   `json:"oldPrice"`
	Rating      float64           `json:"rating"`
	Quantity    int               `json:"quantity"`
	Status      string            `json:"status"`
	Category    string            `json:"category"`
	DistanceKm  float64           `json:"distanceKm"`
	Address     string            `json:"address"`
	Location    types.Coordinates `json:"location"`
}

// InStock reports whether the requested quantity is available.
func (i Item) InStock(quantity int) bool {
	return quantity > 0 && quantity <= i.Quantity
}

func toMenuItem(dto apiclient.MenuItemDTO) Item {
	return Item{
		ID:          dto.ID,
		Name:        dto.Name,
		StoreName:   dto.StoreName,
		Description: dto.Description,
		Image:       dto.ImageURL,
		Price:       dto.DiscountedPrice,
		OldPrice:    dto.OriginalPrice,
		Rating:      dto.AverageRating,
		Quantity:    dto.QuantityAvailable,
		Status:      dto.Status,
		Category:    dto.Category,
		DistanceKm:  dto.DistanceKm,
		Address:     dto.Address,
		Location:    types.Coordinates{Latitude: dto.Latitude, Longitude: dto.Longitude},
	}
}

type Snapshot struct {
	Items  []Item      `json:"items"`
	Status state.Track `json:"status"`
}

type ServiceParams struct {
	API    menuAPI
	Hub    *state.Hub
	Logger *logger.Logger
}

type Service struct {
	api    menuAPI
	hub    *state.Hub
	logger *logger.Logger

	mu    sync.RWMutex
	state Snapshot
}

func NewService(params ServiceParams) (*Service, error) {
	if params.API == nil {
		return nil, fmt.Errorf("menu api is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		api:    params.API,
		hub:    params.Hub,
		logger: logg,
		state:  Snapshot{Status: state.Idle()},
	}, nil
}

func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.state
	snap.Items = append([]Item(nil), s.state.Items...)
	return snap
}

func (s *Service) update(fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
	s.hub.Publish(state.Change{Store: storeName, Op: "fetch"})
}

// FetchMenuItems loads the items offered around coords.
func (s *Service) FetchMenuItems(ctx context.Context, coords types.Coordinates) ([]Item, error) {
	s.update(func(st *Snapshot) { st.Status.Begin() })
	err := validate.Struct(coords)
	var dtos []apiclient.MenuItemDTO
	if err == nil {
		dtos, err = s.api.List(ctx, coords)
	}
	if err != nil {
		message := apiclient.ErrorMessage(err, fetchFailedMessage)
		s.update(func(st *Snapshot) { st.Status.Fail(message) })
		return nil, err
	}
	items := make([]Item, 0, len(dtos))
	for _, dto := range dtos {
		items = append(items, toMenuItem(dto))
	}
	s.update(func(st *Snapshot) {
		st.Status.Succeed()
		st.Items = items
	})
	s.logger.Debug(s.logger.WithField(ctx, "count", len(items)), "menu loaded")
	return append([]Item(nil), items...), nil
}

// Find returns the loaded item with the given id.
func (s *Service) Find(id types.ID) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.state.Items {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}

func (s *Service) Categories() []string {
	return Categories(s.Snapshot().Items)
}

func (s *Service) Filter(f Filter) []Item {
	return f.Apply(s.Snapshot().Items)
}
