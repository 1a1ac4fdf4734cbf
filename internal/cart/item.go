package cart

import (
	"github.com/labujaya/lastbite/pkg/apiclient"
	"github.com/labujaya/lastbite/pkg/types"
	"github.com/shopspring/decimal"
)

// UnknownStore groups items whose seller has no store name.
const UnknownStore = "Unknown store"

type Item struct {
	CartItemID types.ID        `json:"cartItemId"`
	MenuItemID types.ID        `json:"menuItemId"`
	SellerID   types.ID        `json:"sellerId"`
	Name       string          `json:"name"`
	Image      string          `json:"image"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// StoreSummary is the per-store checkout line.
type StoreSummary struct {
	StoreName string          `json:"storeName"`
	SellerID  types.ID        `json:"sellerId"`
	ItemCount int             `json:"itemCount"`
	Total     decimal.Decimal `json:"total"`
}

func toItem(seller apiclient.CartSellerDTO, dto apiclient.CartItemDTO) Item {
	name := dto.MenuItemName
	if name == "" {
		name = dto.Name
	}
	image := dto.ImageURL
	if image == "" {
		image = dto.Image
	}
	return Item{
		CartItemID: dto.CartItemID,
		MenuItemID: dto.MenuItemID,
		SellerID:   seller.SellerID,
		Name:       name,
		Image:      image,
		Price:      dto.Price,
		Quantity:   dto.Quantity,
		Subtotal:   dto.Subtotal,
	}
}

// fromCart regroups the server cart by store name. Totals come from the
// server subtotals, not from price times quantity.
func fromCart(dto *apiclient.CartDTO) Snapshot {
	snap := Snapshot{Items: map[string][]Item{}, TotalAmount: decimal.Zero}
	if dto == nil {
		return snap
	}
	snap.CartID = dto.CartID
	for _, seller := range dto.Sellers {
		storeName := seller.StoreName
		if storeName == "" {
			storeName = UnknownStore
		}
		if _, seen := snap.Items[storeName]; !seen {
			snap.Stores = append(snap.Stores, storeName)
		}
		items := make([]Item, 0, len(seller.Items))
		for _, dtoItem := range seller.Items {
			items = append(items, toItem(seller, dtoItem))
			snap.TotalQuantity += dtoItem.Quantity
			snap.TotalAmount = snap.TotalAmount.Add(dtoItem.Subtotal)
		}
		snap.Items[storeName] = append(snap.Items[storeName], items...)
	}
	return snap
}
