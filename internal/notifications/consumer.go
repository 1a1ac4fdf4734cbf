package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/labujaya/lastbite/pkg/enums"
	"github.com/labujaya/lastbite/pkg/types"
)

// OrderUpdate is an order status push for the signed-in customer.
type OrderUpdate struct {
	OrderID   types.ID `json:"orderId,omitempty"`
	StoreName string   `json:"storeName"`
	Status    string   `json:"status"`
}

// Message is the text shown to the customer.
func (u OrderUpdate) Message() string {
	return fmt.Sprintf("order in %s is %s", u.StoreName, u.Status)
}

// Topic is the destination carrying a customer's order updates.
func Topic(userID types.ID) string {
	return "/topic/customer/" + userID.String()
}

// process turns one pushed frame body into a notification.
func (r *Registry) process(ctx context.Context, userID types.ID, body []byte) {
	logCtx := r.logg.WithUserID(ctx, userID.String())

	var update OrderUpdate
	if err := json.Unmarshal(body, &update); err != nil {
		r.logg.Error(logCtx, "failed to decode order update", err)
		return
	}
	if strings.TrimSpace(update.StoreName) == "" || strings.TrimSpace(update.Status) == "" {
		r.logg.Warn(logCtx, "order update missing store name or status")
		return
	}

	logCtx = r.logg.WithFields(r.logg.WithStoreName(logCtx, update.StoreName), map[string]any{
		"order_id": update.OrderID.String(),
		"status":   update.Status,
	})
	r.notifier.Show(update.Message(), enums.ModalTypeSuccess)
	r.metrics.IncNotification(update.Status)
	r.logg.Info(logCtx, "order status notification received")
	if r.onUpdate != nil {
		r.onUpdate(ctx, update)
	}
}
