package orders

import (
	"strings"

	"github.com/labujaya/lastbite/pkg/apiclient"
	"github.com/labujaya/lastbite/pkg/enums"
	"github.com/labujaya/lastbite/pkg/types"
	"github.com/shopspring/decimal"
)

type Order struct {
	ID               types.ID          `json:"orderId"`
	StoreName        string            `json:"storeName"`
	Status           enums.OrderStatus `json:"status"`
	TotalAmount      decimal.Decimal   `json:"totalAmount"`
	VerificationCode string            `json:"verificationCode,omitempty"`
	Items            []OrderItem       `json:"orderItems"`
	PaymentURL       string            `json:"paymentUrl,omitempty"`
	CreatedAt        string            `json:"createdAt,omitempty"`
}

type OrderItem struct {
	MenuItemID types.ID        `json:"menuItemId"`
	Name       string          `json:"menuItemName"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// AwaitingPayment reports whether the customer still has to pay.
func (o Order) AwaitingPayment() bool {
	return o.Status == enums.OrderStatusPendingPayment && o.PaymentURL != ""
}

func toOrder(dto *apiclient.OrderDTO) Order {
	if dto == nil {
		return Order{}
	}
	id := dto.OrderID
	if id.IsZero() {
		id = dto.ID
	}
	paymentURL := dto.URLMidtrans
	if dto.Payment != nil && dto.Payment.RedirectURL != "" {
		paymentURL = dto.Payment.RedirectURL
	}
	items := make([]OrderItem, 0, len(dto.OrderItems))
	for _, item := range dto.OrderItems {
		items = append(items, OrderItem{
			MenuItemID: item.MenuItemID,
			Name:       item.MenuItemName,
			Quantity:   item.Quantity,
			Price:      item.Price,
			Subtotal:   item.Subtotal,
		})
	}
	return Order{
		ID:               id,
		StoreName:        dto.StoreName,
		Status:           toStatus(dto.Status),
		TotalAmount:      dto.TotalAmount,
		VerificationCode: dto.VerificationCode,
		Items:            items,
		PaymentURL:       paymentURL,
		CreatedAt:        dto.CreatedAt,
	}
}

// toStatus keeps statuses the client does not know about, normalized.
func toStatus(raw string) enums.OrderStatus {
	if status, err := enums.ParseOrderStatus(raw); err == nil {
		return status
	}
	return enums.OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
}
