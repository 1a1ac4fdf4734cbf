// Package cart mirrors the server-side cart grouped by store and keeps
// quantity changes responsive by applying them locally before the server
// confirms them.
package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/labujaya/lastbite/internal/state"
	"github.com/labujaya/lastbite/pkg/apiclient"
	pkgerrors "github.com/labujaya/lastbite/pkg/errors"
	"github.com/labujaya/lastbite/pkg/logger"
	"github.com/labujaya/lastbite/pkg/types"
	"github.com/labujaya/lastbite/pkg/validate"
	"github.com/shopspring/decimal"
)

const (
	storeName = "cart"

	fetchFailedMessage  = "failed to load cart"
	addFailedMessage    = "failed to add item"
	removeFailedMessage = "failed to remove item"
)

type cartAPI interface {
	Get(ctx context.Context) (*apiclient.CartDTO, error)
	AddItem(ctx context.Context, req apiclient.AddCartItemRequest) error
	DeleteItem(ctx context.Context, cartItemID types.ID) error
	UpdateQuantity(ctx context.Context, cartItemID types.ID, quantity int) error
}

// Snapshot is a copy of the cart. Status tracks fetches and removals, Add
// tracks add-to-cart so adding does not clobber the fetch indicator.
type Snapshot struct {
	CartID        types.ID          `json:"cartId"`
	Items         map[string][]Item `json:"items"`
	Stores        []string          `json:"stores"`
	TotalQuantity int               `json:"totalQuantity"`
	TotalAmount   decimal.Decimal   `json:"totalAmount"`
	Status        state.Track       `json:"status"`
	Add           state.Track       `json:"add"`
}

type ServiceParams struct {
	API    cartAPI
	Hub    *state.Hub
	Logger *logger.Logger
}

type Service struct {
	api    cartAPI
	hub    *state.Hub
	logger *logger.Logger

	mu    sync.RWMutex
	state Snapshot

	syncs sync.WaitGroup
}

func NewService(params ServiceParams) (*Service, error) {
	if params.API == nil {
		return nil, fmt.Errorf("cart api is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		api:    params.API,
		hub:    params.Hub,
		logger: logg,
		state: Snapshot{
			Items:       map[string][]Item{},
			TotalAmount: decimal.Zero,
			Status:      state.Idle(),
			Add:         state.Idle(),
		},
	}, nil
}

func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

func (s *Service) update(op string, fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
	s.hub.Publish(state.Change{Store: storeName, Op: op})
}

// FetchCart replaces the local cart with the server's.
func (s *Service) FetchCart(ctx context.Context) error {
	s.update("fetch", func(st *Snapshot) { st.Status.Begin() })
	dto, err := s.api.Get(ctx)
	if err != nil {
		message := apiclient.ErrorMessage(err, fetchFailedMessage)
		s.update("fetch", func(st *Snapshot) { st.Status.Fail(message) })
		return err
	}
	fetched := fromCart(dto)
	s.update("fetch", func(st *Snapshot) {
		fetched.Status = st.Status
		fetched.Add = st.Add
		fetched.Status.Succeed()
		*st = fetched
	})
	return nil
}

// AddToCart adds a menu item and then refetches so server-computed fields
// are reflected. A failed refetch is recorded on Status, not on Add.
func (s *Service) AddToCart(ctx context.Context, menuItemID types.ID, quantity int) error {
	s.update("add", func(st *Snapshot) { st.Add.Begin() })
	req := apiclient.AddCartItemRequest{MenuItemID: menuItemID, Quantity: quantity}
	err := validate.Struct(req)
	if err == nil {
		err = s.api.AddItem(ctx, req)
	}
	if err != nil {
		message := apiclient.ErrorMessage(err, addFailedMessage)
		s.update("add", func(st *Snapshot) { st.Add.Fail(message) })
		return err
	}
	_ = s.FetchCart(ctx)
	s.update("add", func(st *Snapshot) { st.Add.Succeed() })
	return nil
}

// RemoveItem deletes the line on the server, then refetches. Nothing is
// removed locally before the server answers.
func (s *Service) RemoveItem(ctx context.Context, cartItemID types.ID) error {
	if err := s.api.DeleteItem(ctx, cartItemID); err != nil {
		message := apiclient.ErrorMessage(err, removeFailedMessage)
		s.update("remove", func(st *Snapshot) { st.Status.Fail(message) })
		return err
	}
	return s.FetchCart(ctx)
}

// IncreaseQuantity bumps the item by one locally and syncs the new quantity
// in the background.
func (s *Service) IncreaseQuantity(ctx context.Context, store string, cartItemID types.ID) (*QuantityChange, error) {
	return s.changeQuantity(ctx, store, cartItemID, 1)
}

// DecreaseQuantity lowers the item by one. Reaching zero removes the item
// through RemoveItem instead of sending a zero quantity.
func (s *Service) DecreaseQuantity(ctx context.Context, store string, cartItemID types.ID) (*QuantityChange, error) {
	return s.changeQuantity(ctx, store, cartItemID, -1)
}

func (s *Service) changeQuantity(ctx context.Context, store string, cartItemID types.ID, delta int) (*QuantityChange, error) {
	var (
		change   *QuantityChange
		notFound bool
	)
	s.mu.Lock()
	item := s.state.find(store, cartItemID)
	switch {
	case item == nil:
		notFound = true
	case item.Quantity+delta <= 0:
		change = newQuantityChange(store, cartItemID, 0)
		change.Removed = true
	default:
		change = newQuantityChange(store, cartItemID, item.Quantity+delta)
		item.Quantity = change.NewQuantity
		item.Subtotal = item.Price.Mul(decimal.NewFromInt(int64(change.NewQuantity)))
		// Totals move by one unit per change, matching the local bump.
		if delta > 0 {
			s.state.TotalQuantity++
			s.state.TotalAmount = s.state.TotalAmount.Add(item.Price)
		} else {
			s.state.TotalQuantity--
			s.state.TotalAmount = s.state.TotalAmount.Sub(item.Price)
		}
	}
	s.mu.Unlock()

	if notFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found in cart")
	}
	if change.Removed {
		change.finish(s.RemoveItem(ctx, cartItemID))
		return change, nil
	}

	s.hub.Publish(state.Change{Store: storeName, Op: "quantity"})
	s.syncs.Add(1)
	go s.syncQuantity(context.WithoutCancel(ctx), change)
	return change, nil
}

func (s *Service) syncQuantity(ctx context.Context, change *QuantityChange) {
	defer s.syncs.Done()
	err := s.api.UpdateQuantity(ctx, change.CartItemID, change.NewQuantity)
	if err != nil {
		logCtx := s.logger.WithFields(ctx, map[string]any{
			"cart_item_id": change.CartItemID.String(),
			"quantity":     change.NewQuantity,
		})
		s.logger.Error(logCtx, "quantity sync failed, reloading cart", err)
		_ = s.FetchCart(ctx)
	}
	change.finish(err)
}

// Wait blocks until every background quantity sync has finished.
func (s *Service) Wait() {
	s.syncs.Wait()
}

// Clear empties the cart contents. Request tracks are left as they are.
func (s *Service) Clear() {
	s.update("clear", func(st *Snapshot) {
		st.CartID = ""
		st.Items = map[string][]Item{}
		st.Stores = nil
		st.TotalQuantity = 0
		st.TotalAmount = decimal.Zero
	})
}

func (s *Service) ResetAddStatus() {
	s.update("resetAdd", func(st *Snapshot) { st.Add.Reset() })
}

// ItemsForStore returns a copy of one store's items.
func (s *Service) ItemsForStore(store string) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Item(nil), s.state.Items[store]...)
}

// SellerID returns the seller behind a store in the cart.
func (s *Service) SellerID(store string) (types.ID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.state.Items[store] {
		if !item.SellerID.IsZero() {
			return item.SellerID, true
		}
	}
	return "", false
}

// StoreSummaries lists each store in server order with its item count and
// price times quantity total.
func (s *Service) StoreSummaries() []StoreSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]StoreSummary, 0, len(s.state.Stores))
	for _, name := range s.state.Stores {
		summary := StoreSummary{StoreName: name, Total: decimal.Zero}
		for _, item := range s.state.Items[name] {
			if summary.SellerID.IsZero() {
				summary.SellerID = item.SellerID
			}
			summary.ItemCount += item.Quantity
			summary.Total = summary.Total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		out = append(out, summary)
	}
	return out
}

func (st *Snapshot) find(store string, cartItemID types.ID) *Item {
	items := st.Items[store]
	for i := range items {
		if items[i].CartItemID == cartItemID {
			return &items[i]
		}
	}
	return nil
}

func (st *Snapshot) clone() Snapshot {
	out := *st
	out.Items = make(map[string][]Item, len(st.Items))
	for name, items := range st.Items {
		out.Items[name] = append([]Item(nil), items...)
	}
	out.Stores = append([]string(nil), st.Stores...)
	return out
}
