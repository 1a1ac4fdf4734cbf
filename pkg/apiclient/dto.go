package apiclient

import (
	"bytes"
	"encoding/json"

	"github.com/labujaya/lastbite/pkg/types"
	"github.com/shopspring/decimal"
)

// LoginRequest is the /auth/login payload.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthTokens is returned by login and refresh. Refresh may omit RefreshToken.
type AuthTokens struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// RegisterRequest is the /auth/register-customer payload.
type RegisterRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	Username    string  `json:"username" validate:"required,min=3"`
	PhoneNumber string  `json:"phoneNumber" validate:"required,numeric,min=10"`
	FullName    string  `json:"fullName" validate:"required,min=3"`
	Password    string  `json:"password" validate:"required,min=8"`
	Longitude   float64 `json:"longitude" validate:"longitude"`
	Latitude    float64 `json:"latitude" validate:"latitude"`
}

type ProfileDTO struct {
	ID              types.ID `json:"id"`
	Username        string   `json:"username"`
	FullName        string   `json:"fullName"`
	Email           string   `json:"email"`
	PhoneNumber     string   `json:"phoneNumber"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	ProfileImageURL string   `json:"profileImageUrl"`
}

// UpdateProfileRequest is a partial update; nil fields are not sent.
type UpdateProfileRequest struct {
	Username        *string  `json:"username,omitempty" validate:"omitempty,min=3"`
	FullName        *string  `json:"fullName,omitempty" validate:"omitempty,min=3"`
	Email           *string  `json:"email,omitempty" validate:"omitempty,email"`
	PhoneNumber     *string  `json:"phoneNumber,omitempty" validate:"omitempty,numeric,min=10"`
	Latitude        *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude       *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
	ProfileImageURL *string  `json:"profileImageUrl,omitempty" validate:"omitempty,url"`
}

type ChangePasswordRequest struct {
	OldPassword        string `json:"oldPassword" validate:"required"`
	NewPassword        string `json:"newPassword" validate:"required,min=8"`
	ConfirmNewPassword string `json:"confirmNewPassword" validate:"required,eqfield=NewPassword"`
}

type CartDTO struct {
	CartID  types.ID        `json:"cartId"`
	Sellers []CartSellerDTO `json:"sellers"`
}

type CartSellerDTO struct {
	SellerID  types.ID      `json:"sellerId"`
	StoreName string        `json:"storeName"`
	Items     []CartItemDTO `json:"items"`
}

// CartItemDTO carries both the current and the legacy field names the cart
// endpoint has used for item name and image.
type CartItemDTO struct {
	CartItemID   types.ID        `json:"cartItemId"`
	MenuItemID   types.ID        `json:"menuItemId"`
	MenuItemName string          `json:"menuItemName"`
	Name         string          `json:"name"`
	ImageURL     string          `json:"imageUrl"`
	Image        string          `json:"image"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type AddCartItemRequest struct {
	MenuItemID types.ID `json:"menuItemId" validate:"required"`
	Quantity   int      `json:"quantity" validate:"gte=1"`
}

type MenuItemDTO struct {
	ID                types.ID        `json:"id"`
	Name              string          `json:"name"`
	StoreName         string          `json:"storeName"`
	Description       string          `json:"description"`
	ImageURL          string          `json:"imageUrl"`
	DiscountedPrice   decimal.Decimal `json:"discountedPrice"`
	OriginalPrice     decimal.Decimal `json:"originalPrice"`
	AverageRating     float64         `json:"averageRating"`
	QuantityAvailable int             `json:"quantityAvailable"`
	Status            string          `json:"status"`
	Category          string          `json:"category"`
	DistanceKm        float64         `json:"distanceKm"`
	Address           string          `json:"address"`
	Latitude          float64         `json:"latitude"`
	Longitude         float64         `json:"longitude"`
}

type CreateOrderRequest struct {
	CartID   types.ID `json:"cartId" validate:"required"`
	SellerID types.ID `json:"sellerId" validate:"required"`
}

type DirectOrderItem struct {
	MenuItemID types.ID `json:"menuItemId" validate:"required"`
	Quantity   int      `json:"quantity" validate:"gte=1"`
}

type DirectOrderRequest struct {
	OrderItems []DirectOrderItem `json:"orderItems" validate:"required,min=1,dive"`
}

type OrderDTO struct {
	OrderID          types.ID        `json:"orderId"`
	ID               types.ID        `json:"id"`
	StoreName        string          `json:"storeName"`
	Status           string          `json:"status"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	VerificationCode string          `json:"verificationCode"`
	OrderItems       []OrderItemDTO  `json:"orderItems"`
	Payment          *PaymentDTO     `json:"payment"`
	URLMidtrans      string          `json:"urlMidtrans"`
	CreatedAt        string          `json:"createdAt"`
}

type OrderItemDTO struct {
	MenuItemID   types.ID        `json:"menuItemId"`
	MenuItemName string          `json:"menuItemName"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type PaymentDTO struct {
	RedirectURL string `json:"redirectUrl"`
	Status      string `json:"status"`
}

type SubmitReviewRequest struct {
	OrderID    types.ID `json:"orderId,omitempty"`
	MenuItemID types.ID `json:"menuItemId" validate:"required"`
	Rating     int      `json:"rating" validate:"gte=1,lte=5"`
	Comment    string   `json:"comment" validate:"max=1000"`
}

type ReviewDTO struct {
	ID              types.ID `json:"id"`
	MenuItemID      types.ID `json:"menuItemId"`
	CustomerID      types.ID `json:"customerId"`
	CustomerName    string   `json:"customerName"`
	ProfileImageURL string   `json:"profileImageUrl"`
	Rating          int      `json:"rating"`
	Comment         string   `json:"comment"`
	CreatedAt       string   `json:"createdAt"`
}

// UploadResult is the stored file location. The upload endpoint answers
// either with a bare URL string or an object naming it.
type UploadResult struct {
	URL string
}

func (u *UploadResult) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &u.URL)
	}
	var obj struct {
		URL      string `json:"url"`
		ImageURL string `json:"imageUrl"`
		FileURL  string `json:"fileUrl"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	switch {
	case obj.URL != "":
		u.URL = obj.URL
	case obj.ImageURL != "":
		u.URL = obj.ImageURL
	default:
		u.URL = obj.FileURL
	}
	return nil
}
