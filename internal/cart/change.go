package cart

import (
	"context"

	"github.com/labujaya/lastbite/pkg/types"
)

// QuantityChange is an applied local quantity change. The server result
// arrives later; Wait reports it. A failed sync has already triggered a
// full cart reload by the time Wait returns.
type QuantityChange struct {
	StoreName   string
	CartItemID  types.ID
	NewQuantity int
	// Removed is set when the change went through item removal.
	Removed bool

	done chan struct{}
	err  error
}

func newQuantityChange(store string, cartItemID types.ID, quantity int) *QuantityChange {
	return &QuantityChange{
		StoreName:   store,
		CartItemID:  cartItemID,
		NewQuantity: quantity,
		done:        make(chan struct{}),
	}
}

func (c *QuantityChange) finish(err error) {
	c.err = err
	close(c.done)
}

// Done is closed once the server has answered.
func (c *QuantityChange) Done() <-chan struct{} {
	return c.done
}

func (c *QuantityChange) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
