package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labujaya/lastbite/pkg/types"
)

// AuthAPI wraps /auth.
type AuthAPI struct {
	r *Resource
}

func (a *AuthAPI) Login(ctx context.Context, req LoginRequest) (*AuthTokens, error) {
	var tokens AuthTokens
	if err := a.r.Post(ctx, "/login", req, &tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

// Register creates a customer account and returns the server's message.
func (a *AuthAPI) Register(ctx context.Context, req RegisterRequest) (string, error) {
	return a.r.do(ctx, http.MethodPost, "/register-customer", nil, req, nil)
}

// CartsAPI wraps /carts.
type CartsAPI struct {
	r *Resource
}

func (c *CartsAPI) Get(ctx context.Context) (*CartDTO, error) {
	var cart CartDTO
	if err := c.r.Get(ctx, "", nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *CartsAPI) AddItem(ctx context.Context, req AddCartItemRequest) error {
	return c.r.Post(ctx, "/items", req, nil)
}

func (c *CartsAPI) DeleteItem(ctx context.Context, cartItemID types.ID) error {
	return c.r.Delete(ctx, "/items/"+url.PathEscape(cartItemID.String()))
}

// UpdateQuantity sets the absolute quantity of a cart item. The quantity
// travels as a query parameter with an empty body.
func (c *CartsAPI) UpdateQuantity(ctx context.Context, cartItemID types.ID, quantity int) error {
	query := url.Values{"quantity": []string{strconv.Itoa(quantity)}}
	_, err := c.r.do(ctx, http.MethodPut, "/items/"+url.PathEscape(cartItemID.String()), query, nil, nil)
	return err
}

// MenuAPI wraps the public /menu-items listing.
type MenuAPI struct {
	r *Resource
}

func (m *MenuAPI) List(ctx context.Context, coords types.Coordinates) ([]MenuItemDTO, error) {
	query := url.Values{
		"lon": []string{strconv.FormatFloat(coords.Longitude, 'f', -1, 64)},
		"lat": []string{strconv.FormatFloat(coords.Latitude, 'f', -1, 64)},
	}
	var items []MenuItemDTO
	if err := m.r.Get(ctx, "/menu-items", query, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// OrdersAPI wraps /orders.
type OrdersAPI struct {
	r *Resource
}

func (o *OrdersAPI) CreateFromCart(ctx context.Context, req CreateOrderRequest) (*OrderDTO, error) {
	var order OrderDTO
	if err := o.r.Post(ctx, "/from-cart", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (o *OrdersAPI) CreateDirect(ctx context.Context, req DirectOrderRequest) (*OrderDTO, error) {
	var order OrderDTO
	if err := o.r.Post(ctx, "", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListMine returns the caller's orders, optionally filtered by status.
func (o *OrdersAPI) ListMine(ctx context.Context, status string) ([]OrderDTO, error) {
	var query url.Values
	if status != "" {
		query = url.Values{"status": []string{status}}
	}
	var orders []OrderDTO
	if err := o.r.Get(ctx, "/customer/me", query, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ReviewsAPI wraps /menu-item-reviews.
type ReviewsAPI struct {
	r *Resource
}

func (rv *ReviewsAPI) Submit(ctx context.Context, req SubmitReviewRequest) (*ReviewDTO, error) {
	var review ReviewDTO
	if err := rv.r.Post(ctx, "", req, &review); err != nil {
		return nil, err
	}
	return &review, nil
}

func (rv *ReviewsAPI) ListByMenuItem(ctx context.Context, menuItemID types.ID) ([]ReviewDTO, error) {
	var reviews []ReviewDTO
	if err := rv.r.Get(ctx, "/menu/"+url.PathEscape(menuItemID.String()), nil, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

// UsersAPI wraps /users.
type UsersAPI struct {
	r *Resource
}

func (u *UsersAPI) Me(ctx context.Context) (*ProfileDTO, error) {
	var profile ProfileDTO
	if err := u.r.Get(ctx, "/me", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (u *UsersAPI) UpdateMe(ctx context.Context, req UpdateProfileRequest) (*ProfileDTO, error) {
	var profile ProfileDTO
	if err := u.r.Put(ctx, "/me", req, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (u *UsersAPI) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	return u.r.Put(ctx, "/me/password", req, nil)
}
