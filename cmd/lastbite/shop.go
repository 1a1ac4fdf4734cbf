package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/labujaya/lastbite/internal/app"
	"github.com/labujaya/lastbite/internal/cart"
	"github.com/labujaya/lastbite/internal/menu"
	"github.com/labujaya/lastbite/pkg/apiclient"
	"github.com/labujaya/lastbite/pkg/enums"
	"github.com/labujaya/lastbite/pkg/types"
	"github.com/urfave/cli/v2"
)

var coordinateFlags = []cli.Flag{
	&cli.Float64Flag{Name: "lat", Usage: "latitude, defaults to the profile location"},
	&cli.Float64Flag{Name: "lon", Usage: "longitude, defaults to the profile location"},
}

// coordinates prefers explicit flags and falls back to the stored profile
// location.
func coordinates(c *cli.Context, a *app.App) (types.Coordinates, error) {
	if c.IsSet("lat") || c.IsSet("lon") {
		if !c.IsSet("lat") || !c.IsSet("lon") {
			return types.Coordinates{}, cli.Exit("both --lat and --lon are required", 1)
		}
		return types.Coordinates{Latitude: c.Float64("lat"), Longitude: c.Float64("lon")}, nil
	}
	if user := a.Users.Snapshot().User; user != nil {
		if coords, ok := user.Coordinates(); ok {
			return coords, nil
		}
	}
	return types.Coordinates{}, cli.Exit("no location on the profile, pass --lat and --lon", 1)
}

func menuCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "menu",
		Usage: "list menu items near a location",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "match item or store name"},
			&cli.StringFlag{Name: "category", Value: menu.AllCategories},
			&cli.StringFlag{Name: "price-sort", Usage: "lowest or highest"},
			&cli.StringFlag{Name: "rating-sort", Usage: "lowest or highest"},
			&cli.BoolFlag{Name: "categories", Usage: "list categories instead of items"},
		}, coordinateFlags...),
		Action: func(c *cli.Context) error {
			a, err := r.open(c)
			if err != nil {
				return err
			}
			priceSort, err := enums.ParseSortOrder(c.String("price-sort"))
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			ratingSort, err := enums.ParseSortOrder(c.String("rating-sort"))
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			coords, err := coordinates(c, a)
			if err != nil {
				return err
			}
			if _, err := a.Menu.FetchMenuItems(c.Context, coords); err != nil {
				return r.fail(err, "failed to load menu")
			}
			if c.Bool("categories") {
				for _, category := range a.Menu.Categories() {
					r.printf("%s\n", category)
				}
				return nil
			}
			items := a.Menu.Filter(menu.Filter{
				Query:      c.String("query"),
				Category:   c.String("category"),
				PriceSort:  priceSort,
				RatingSort: ratingSort,
			})
			w := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tITEM\tSTORE\tPRICE\tWAS\tRATING\tLEFT\tKM")
			for _, item := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.1f\t%d\t%.1f\n",
					item.ID, item.Name, item.StoreName, item.Price, item.OldPrice, item.Rating, item.Quantity, item.DistanceKm)
			}
			return w.Flush()
		},
	}
}

func cartCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "cart",
		Usage: "show and change the cart",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "list cart items grouped by store",
				Action: func(c *cli.Context) error {
					a, err := r.session(c)
					if err != nil {
						return err
					}
					if status := a.Cart.Snapshot().Status; status.Failed() {
						return cli.Exit(status.Error, 1)
					}
					r.printCart(a)
					return nil
				},
			},
			{
				Name:      "add",
				Usage:     "add a menu item",
				ArgsUsage: "<menu-item-id>",
				Flags:     []cli.Flag{&cli.IntFlag{Name: "qty", Value: 1}},
				Action: func(c *cli.Context) error {
					a, err := r.session(c)
					if err != nil {
						return err
					}
					id, err := argID(c, 0, "menu item id")
					if err != nil {
						return err
					}
					if err := a.Cart.AddToCart(c.Context, id, c.Int("qty")); err != nil {
						return r.fail(err, "failed to add item")
					}
					r.printCart(a)
					return nil
				},
			},
			quantityCommand(r, "inc", "increase an item's quantity by one", (*cart.Service).IncreaseQuantity),
			quantityCommand(r, "dec", "decrease an item's quantity by one, removing it at zero", (*cart.Service).DecreaseQuantity),
			{
				Name:      "rm",
				Usage:     "remove a cart item",
				ArgsUsage: "<cart-item-id>",
				Action: func(c *cli.Context) error {
					a, err := r.session(c)
					if err != nil {
						return err
					}
					id, err := argID(c, 0, "cart item id")
					if err != nil {
						return err
					}
					if err := a.Cart.RemoveItem(c.Context, id); err != nil {
						return r.fail(err, "failed to remove item")
					}
					r.printCart(a)
					return nil
				},
			},
		},
	}
}

type quantityFunc func(s *cart.Service, ctx context.Context, store string, cartItemID types.ID) (*cart.QuantityChange, error)

func quantityCommand(r *runner, name, usage string, change quantityFunc) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<store-name> <cart-item-id>",
		Action: func(c *cli.Context) error {
			a, err := r.session(c)
			if err != nil {
				return err
			}
			store := c.Args().Get(0)
			id, err := argID(c, 1, "cart item id")
			if err != nil {
				return err
			}
			pending, err := change(a.Cart, c.Context, store, id)
			if err != nil {
				return r.fail(err, "failed to update quantity")
			}
			if err := pending.Wait(c.Context); err != nil {
				return r.fail(err, "failed to update quantity")
			}
			r.printCart(a)
			return nil
		},
	}
}

func (r *runner) printCart(a *app.App) {
	snap := a.Cart.Snapshot()
	if len(snap.Stores) == 0 {
		r.printf("cart is empty\n")
		return
	}
	w := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	for _, summary := range a.Cart.StoreSummaries() {
		fmt.Fprintf(w, "%s\t%d items\t%s\n", summary.StoreName, summary.ItemCount, summary.Total)
		for _, item := range a.Cart.ItemsForStore(summary.StoreName) {
			fmt.Fprintf(w, "  %s\t%s x%d\t%s\n", item.CartItemID, item.Name, item.Quantity, item.Subtotal)
		}
	}
	fmt.Fprintf(w, "TOTAL\t%d items\t%s\n", snap.TotalQuantity, snap.TotalAmount)
	_ = w.Flush()
}

func orderCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "order",
		Usage: "check out and list orders",
		Subcommands: []*cli.Command{
			{
				Name:      "checkout",
				Usage:     "order one store's items from the cart",
				ArgsUsage: "<store-name>",
				Action: func(c *cli.Context) error {
					a, err := r.session(c)
					if err != nil {
						return err
					}
					store := strings.TrimSpace(c.Args().First())
					if store == "" {
						return cli.Exit("store name is required", 1)
					}
					order, err := a.CheckoutStore(c.Context, store)
					if err != nil {
						return r.fail(err, "failed to create order")
					}
					r.printOrderCreated(order.ID, order.PaymentURL)
					return nil
				},
			},
			{
				Name:      "direct",
				Usage:     "order a menu item without the cart",
				ArgsUsage: "<menu-item-id>",
				Flags:     []cli.Flag{&cli.IntFlag{Name: "qty", Value: 1}},
				Action: func(c *cli.Context) error {
					a, err := r.session(c)
					if err != nil {
						return err
					}
					id, err := argID(c, 0, "menu item id")
					if err != nil {
						return err
					}
					order, err := a.Orders.CreateDirectOrder(c.Context, []apiclient.DirectOrderItem{{MenuItemID: id, Quantity: c.Int("qty")}})
					if err != nil {
						return r.fail(err, "failed to create direct order")
					}
					r.printOrderCreated(order.ID, order.PaymentURL)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "list your orders",
				Flags: []cli.Flag{&cli.StringFlag{Name: "status", Usage: "PENDING_PAYMENT, PAID, COMPLETED or CANCELLED"}},
				Action: func(c *cli.Context) error {
					a, err := r.session(c)
					if err != nil {
						return err
					}
					var status enums.OrderStatus
					if raw := c.String("status"); raw != "" {
						if status, err = enums.ParseOrderStatus(raw); err != nil {
							return cli.Exit(err.Error(), 1)
						}
					}
					orders, err := a.Orders.FetchCustomerOrders(c.Context, status)
					if err != nil {
						return r.fail(err, "failed to load order history")
					}
					w := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "ID\tSTORE\tSTATUS\tTOTAL\tCODE\tPAY")
					for _, order := range orders {
						pay := ""
						if order.AwaitingPayment() {
							pay = order.PaymentURL
						}
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
							order.ID, order.StoreName, order.Status, order.TotalAmount, order.VerificationCode, pay)
					}
					return w.Flush()
				},
			},
		},
	}
}

func (r *runner) printOrderCreated(id types.ID, paymentURL string) {
	r.printf("order %s created\n", id)
	if paymentURL != "" {
		r.printf("complete payment at %s\n", paymentURL)
	}
}

func argID(c *cli.Context, index int, name string) (types.ID, error) {
	raw := strings.TrimSpace(c.Args().Get(index))
	if raw == "" {
		return "", cli.Exit(name+" is required", 1)
	}
	return types.ID(raw), nil
}
