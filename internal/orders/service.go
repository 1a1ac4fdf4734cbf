// Package orders places orders and lists the customer's order history.
package orders

import (
	"context"
	"fmt"
	"sync"

	"github.com/labujaya/lastbite/internal/state"
	"github.com/labujaya/lastbite/pkg/apiclient"
	"github.com/labujaya/lastbite/pkg/enums"
	"github.com/labujaya/lastbite/pkg/logger"
	"github.com/labujaya/lastbite/pkg/types"
	"github.com/labujaya/lastbite/pkg/validate"
)

const (
	storeName = "orders"

	createFailedMessage = "failed to create order"
	directFailedMessage = "failed to create direct order"
	fetchFailedMessage  = "failed to load order history"
)

type ordersAPI interface {
	CreateFromCart(ctx context.Context, req apiclient.CreateOrderRequest) (*apiclient.OrderDTO, error)
	CreateDirect(ctx context.Context, req apiclient.DirectOrderRequest) (*apiclient.OrderDTO, error)
	ListMine(ctx context.Context, status string) ([]apiclient.OrderDTO, error)
}

// Snapshot is a copy of the order state. Both creation paths share Submit.
type Snapshot struct {
	Orders       []Order     `json:"orders"`
	CurrentOrder *Order      `json:"currentOrder"`
	PaymentURL   string      `json:"paymentUrl,omitempty"`
	Submit       state.Track `json:"submit"`
	Fetch        state.Track `json:"fetch"`
}

type ServiceParams struct {
	API    ordersAPI
	Hub    *state.Hub
	Logger *logger.Logger
}

type Service struct {
	api    ordersAPI
	hub    *state.Hub
	logger *logger.Logger

	mu    sync.RWMutex
	state Snapshot
}

func NewService(params ServiceParams) (*Service, error) {
	if params.API == nil {
		return nil, fmt.Errorf("orders api is required")
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
	snap.Orders = append([]Order(nil), s.state.Orders...)
	if s.state.CurrentOrder != nil {
		current := *s.state.CurrentOrder
		snap.CurrentOrder = &current
	}
	return snap
}

func (s *Service) update(op string, fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
	s.hub.Publish(state.Change{Store: storeName, Op: op})
}

// CreateOrder checks out one seller's part of the cart.
func (s *Service) CreateOrder(ctx context.Context, cartID, sellerID types.ID) (*Order, error) {
	req := apiclient.CreateOrderRequest{CartID: cartID, SellerID: sellerID}
	return s.submit(ctx, createFailedMessage, req, func() (*apiclient.OrderDTO, error) {
		return s.api.CreateFromCart(ctx, req)
	})
}

// CreateDirectOrder orders menu items without going through the cart.
func (s *Service) CreateDirectOrder(ctx context.Context, items []apiclient.DirectOrderItem) (*Order, error) {
	req := apiclient.DirectOrderRequest{OrderItems: items}
	return s.submit(ctx, directFailedMessage, req, func() (*apiclient.OrderDTO, error) {
		return s.api.CreateDirect(ctx, req)
	})
}

func (s *Service) submit(ctx context.Context, fallback string, payload any, call func() (*apiclient.OrderDTO, error)) (*Order, error) {
	s.update("submit", func(st *Snapshot) { st.Submit.Begin() })
	err := validate.Struct(payload)
	var dto *apiclient.OrderDTO
	if err == nil {
		dto, err = call()
	}
	if err != nil {
		message := apiclient.ErrorMessage(err, fallback)
		s.update("submit", func(st *Snapshot) { st.Submit.Fail(message) })
		return nil, err
	}
	order := toOrder(dto)
	// Only the redirect issued with this order counts as its payment link.
	paymentURL := ""
	if dto.Payment != nil {
		paymentURL = dto.Payment.RedirectURL
	}
	s.update("submit", func(st *Snapshot) {
		st.Submit.Succeed()
		current := order
		st.CurrentOrder = &current
		st.PaymentURL = paymentURL
	})
	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"order_id":   order.ID.String(),
		"store_name": order.StoreName,
	}), "order created")
	return &order, nil
}

// FetchCustomerOrders lists the caller's orders. An empty status lists all.
func (s *Service) FetchCustomerOrders(ctx context.Context, status enums.OrderStatus) ([]Order, error) {
	s.update("fetch", func(st *Snapshot) { st.Fetch.Begin() })
	dtos, err := s.api.ListMine(ctx, status.String())
	if err != nil {
		message := apiclient.ErrorMessage(err, fetchFailedMessage)
		s.update("fetch", func(st *Snapshot) { st.Fetch.Fail(message) })
		return nil, err
	}
	orders := make([]Order, 0, len(dtos))
	for i := range dtos {
		orders = append(orders, toOrder(&dtos[i]))
	}
	s.update("fetch", func(st *Snapshot) {
		st.Fetch.Succeed()
		st.Orders = orders
	})
	return append([]Order(nil), orders...), nil
}

// ResetOrderStatus forgets the last submitted order. The order list and
// the fetch track are kept.
func (s *Service) ResetOrderStatus() {
	s.update("reset", func(st *Snapshot) {
		st.CurrentOrder = nil
		st.PaymentURL = ""
		st.Submit.Reset()
	})
}
