package menu

import (
	"context"
	"errors"
	"testing"

	"github.com/labujaya/lastbite/internal/state"
	"github.com/labujaya/lastbite/pkg/apiclient"
	"github.com/labujaya/lastbite/pkg/enums"
	pkgerrors "github.com/labujaya/lastbite/pkg/errors"
	"github.com/labujaya/lastbite/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMenuAPI struct {
	listFn func(ctx context.Context, coords types.Coordinates) ([]apiclient.MenuItemDTO, error)
	calls  int
}

func (f *fakeMenuAPI) List(ctx context.Context, coords types.Coordinates) ([]apiclient.MenuItemDTO, error) {
	f.calls++
	if f.listFn != nil {
		return f.listFn(ctx, coords)
	}
	return nil, nil
}

func TestFetchMenuItemsMapsFields(t *testing.T) {
	api := &fakeMenuAPI{listFn: func(_ context.Context, coords types.Coordinates) ([]apiclient.MenuItemDTO, error) {
		assert.Equal(t, types.Coordinates{Latitude: -6.2, Longitude: 106.8}, coords)
		return []apiclient.MenuItemDTO{{
			ID:                "7",
			Name:              "Nasi Goreng",
			StoreName:         "Warung Sari",
			ImageURL:          "nasi.jpg",
			DiscountedPrice:   decimal.NewFromInt(15000),
			OriginalPrice:     decimal.NewFromInt(25000),
			AverageRating:     4.5,
			QuantityAvailable: 3,
			Status:            "AVAILABLE",
			Category:          "Rice",
			DistanceKm:        1.2,
			Latitude:          -6.21,
			Longitude:         106.81,
		}}, nil
	}}
	svc, err := NewService(ServiceParams{API: api, Hub: state.NewHub()})
	require.NoError(t, err)

	items, err := svc.FetchMenuItems(context.Background(), types.Coordinates{Latitude: -6.2, Longitude: 106.8})
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "nasi.jpg", item.Image)
	assert.True(t, item.Price.Equal(decimal.NewFromInt(15000)))
	assert.True(t, item.OldPrice.Equal(decimal.NewFromInt(25000)))
	assert.Equal(t, 4.5, item.Rating)
	assert.Equal(t, 3, item.Quantity)
	assert.Equal(t, types.Coordinates{Latitude: -6.21, Longitude: 106.81}, item.Location)
	assert.True(t, item.InStock(3))
	assert.False(t, item.InStock(4))

	found, ok := svc.Find("7")
	require.True(t, ok)
	assert.Equal(t, "Nasi Goreng", found.Name)
	assert.Equal(t, enums.RequestStatusSucceeded, svc.Snapshot().Status.Status)
}

func TestFetchMenuItemsFailure(t *testing.T) {
	api := &fakeMenuAPI{listFn: func(context.Context, types.Coordinates) ([]apiclient.MenuItemDTO, error) {
		return nil, errors.New("boom")
	}}
	svc, err := NewService(ServiceParams{API: api})
	require.NoError(t, err)

	_, err = svc.FetchMenuItems(context.Background(), types.Coordinates{})
	require.Error(t, err)
	snap := svc.Snapshot()
	assert.Equal(t, enums.RequestStatusFailed, snap.Status.Status)
	assert.Equal(t, "failed to load menu", snap.Status.Error)
}

func TestFetchMenuItemsRejectsBadCoordinates(t *testing.T) {
	api := &fakeMenuAPI{}
	svc, err := NewService(ServiceParams{API: api})
	require.NoError(t, err)

	_, err = svc.FetchMenuItems(context.Background(), types.Coordinates{Latitude: 120, Longitude: 10})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Zero(t, api.calls)
}

func sampleItems() []Item {
	return []Item{
		{ID: "1", Name: "Croissant", StoreName: "Bakery Lane", Category: "Bakery", Price: decimal.NewFromInt(12), Rating: 4.0, DistanceKm: 3},
		{ID: "2", Name: "Sushi Roll", StoreName: "Tokyo Bites", Category: "Japanese", Price: decimal.NewFromInt(30), Rating: 4.8, DistanceKm: 1},
		{ID: "3", Name: "Baguette", StoreName: "Bakery Lane", Category: "Bakery", Price: decimal.NewFromInt(8), Rating: 4.8, DistanceKm: 2},
		{ID: "4", Name: "Mystery Box", StoreName: "Corner Shop", Category: "", Price: decimal.NewFromInt(20), Rating: 3.5, DistanceKm: 0.5},
	}
}

func ids(items []Item) []types.ID {
	out := make([]types.ID, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func TestCategoriesDistinctInOrder(t *testing.T) {
	assert.Equal(t, []string{"Bakery", "Japanese"}, Categories(sampleItems()))
	assert.Empty(t, Categories(nil))
}

func TestFilterApply(t *testing.T) {
	cases := []struct {
		name   string
		filter Filter
		want   []types.ID
	}{
		{name: "distance by default", filter: Filter{}, want: []types.ID{"4", "2", "3", "1"}},
		{name: "all category", filter: Filter{Category: AllCategories}, want: []types.ID{"4", "2", "3", "1"}},
		{name: "category", filter: Filter{Category: "Bakery"}, want: []types.ID{"3", "1"}},
		{name: "query matches store name", filter: Filter{Query: "  bakery "}, want: []types.ID{"3", "1"}},
		{name: "query matches item name", filter: Filter{Query: "SUSHI"}, want: []types.ID{"2"}},
		{name: "price lowest", filter: Filter{PriceSort: enums.SortLowest}, want: []types.ID{"3", "1", "4", "2"}},
		{name: "price highest", filter: Filter{PriceSort: enums.SortHighest}, want: []types.ID{"2", "4", "1", "3"}},
		{name: "rating highest keeps distance for ties", filter: Filter{RatingSort: enums.SortHighest}, want: []types.ID{"2", "3", "1", "4"}},
		{name: "rating over price", filter: Filter{PriceSort: enums.SortLowest, RatingSort: enums.SortHighest}, want: []types.ID{"3", "2", "1", "4"}},
		{name: "no match", filter: Filter{Query: "pizza"}, want: []types.ID{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(tc.filter.Apply(sampleItems())))
		})
	}
}
