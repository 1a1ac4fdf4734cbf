package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/labujaya/lastbite/internal/app"
	"github.com/labujaya/lastbite/internal/users"
	"github.com/labujaya/lastbite/pkg/apiclient"
	"github.com/labujaya/lastbite/pkg/types"
	"github.com/urfave/cli/v2"
)

func reviewCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "review",
		Usage: "read and write menu item reviews",
		Subcommands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "list reviews of a menu item",
				ArgsUsage: "<menu-item-id>",
				Action: func(c *cli.Context) error {
					a, err := r.session(c)
					if err != nil {
						return err
					}
					id, err := argID(c, 0, "menu item id")
					if err != nil {
						return err
					}
					reviews, err := a.Reviews.FetchByMenuItem(c.Context, id)
					if err != nil {
						return r.fail(err, "failed to load reviews")
					}
					if len(reviews) == 0 {
						r.printf("no reviews yet\n")
						return nil
					}
					w := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
					for _, review := range reviews {
						fmt.Fprintf(w, "%d/5\t%s\t%s\n", review.Rating, review.CustomerName, review.Comment)
					}
					if err := w.Flush(); err != nil {
						return err
					}
					r.printf("average %.1f from %d reviews\n", a.Reviews.AverageRating(), len(reviews))
					return nil
				},
			},
			{
				Name:      "submit",
				Usage:     "review a menu item",
				ArgsUsage: "<menu-item-id>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "rating", Usage: "1 to 5", Required: true},
					&cli.StringFlag{Name: "comment"},
					&cli.StringFlag{Name: "order", Usage: "order the item was bought in"},
				},
				Action: func(c *cli.Context) error {
					a, err := r.session(c)
					if err != nil {
						return err
					}
					id, err := argID(c, 0, "menu item id")
					if err != nil {
						return err
					}
					_, err = a.Reviews.Submit(c.Context, apiclient.SubmitReviewRequest{
						OrderID:    types.ID(c.String("order")),
						MenuItemID: id,
						Rating:     c.Int("rating"),
						Comment:    c.String("comment"),
					})
					if err != nil {
						return r.fail(err, "failed to submit review")
					}
					r.printf("review submitted\n")
					return nil
				},
			},
		},
	}
}

func profileCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "manage your profile",
		Subcommands: []*cli.Command{
			{
				Name:  "update",
				Usage: "change profile fields, only the flags given are sent",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username"},
					&cli.StringFlag{Name: "name", Usage: "full name"},
					&cli.StringFlag{Name: "email"},
					&cli.StringFlag{Name: "phone"},
				},
				Action: func(c *cli.Context) error {
					a, err := r.session(c)
					if err != nil {
						return err
					}
					req, ok := profileUpdate(c)
					if !ok {
						return cli.Exit("nothing to update", 1)
					}
					profile, err := a.Users.UpdateMe(c.Context, req)
					if err != nil {
						return r.fail(err, "Failed to update user data")
					}
					r.printProfile(profile)
					return nil
				},
			},
			{
				Name:  "password",
				Usage: "change your password",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "old", Required: true},
					&cli.StringFlag{Name: "new", Required: true},
					&cli.StringFlag{Name: "confirm", Required: true},
				},
				Action: func(c *cli.Context) error {
					a, err := r.session(c)
					if err != nil {
						return err
					}
					err = a.Users.ChangePassword(c.Context, apiclient.ChangePasswordRequest{
						OldPassword:        c.String("old"),
						NewPassword:        c.String("new"),
						ConfirmNewPassword: c.String("confirm"),
					})
					if err != nil {
						return r.fail(err, "Failed to change user password")
					}
					r.printf("password changed\n")
					return nil
				},
			},
			{
				Name:      "avatar",
				Usage:     "upload a profile image",
				ArgsUsage: "<image-file>",
				Action: func(c *cli.Context) error {
					a, err := r.session(c)
					if err != nil {
						return err
					}
					path := c.Args().First()
					if path == "" {
						return cli.Exit("image file is required", 1)
					}
					f, err := os.Open(path)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					defer f.Close()
					profile, err := a.Users.UploadProfileImage(c.Context, filepath.Base(path), f)
					if err != nil {
						return r.fail(err, "Failed to upload profile image")
					}
					r.printProfile(profile)
					return nil
				},
			},
			{
				Name:  "location",
				Usage: "set your location",
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: "lat", Required: true},
					&cli.Float64Flag{Name: "lon", Required: true},
				},
				Action: func(c *cli.Context) error {
					a, err := r.session(c)
					if err != nil {
						return err
					}
					coords := types.Coordinates{Latitude: c.Float64("lat"), Longitude: c.Float64("lon")}
					profile, err := a.Users.UpdateLocation(c.Context, coords)
					if err != nil {
						return r.fail(err, "Failed to update user data")
					}
					r.printProfile(profile)
					return nil
				},
			},
		},
	}
}

// profileUpdate builds a partial update from the flags that were given.
func profileUpdate(c *cli.Context) (apiclient.UpdateProfileRequest, bool) {
	var req apiclient.UpdateProfileRequest
	set := func(flag string) *string {
		if !c.IsSet(flag) {
			return nil
		}
		v := c.String(flag)
		return &v
	}
	req.Username = set("username")
	req.FullName = set("name")
	req.Email = set("email")
	req.PhoneNumber = set("phone")
	ok := req.Username != nil || req.FullName != nil || req.Email != nil || req.PhoneNumber != nil
	return req, ok
}

func (r *runner) printProfile(p *users.Profile) {
	if p == nil {
		return
	}
	r.printf("username: %s\nname:     %s\nemail:    %s\nphone:    %s\n", p.Username, p.FullName, p.Email, p.PhoneNumber)
	if coords, ok := p.Coordinates(); ok {
		r.printf("location: %s\n", coords)
	}
	if p.ProfileImageURL != "" {
		r.printf("image:    %s\n", p.ProfileImageURL)
	}
}

type resourceGetter interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
}

// resourceCommand prints the raw data of a single record from a resource the
// SDK has no typed model for.
func resourceCommand(r *runner, name, usage string, resource func(*app.App) resourceGetter) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			a, err := r.session(c)
			if err != nil {
				return err
			}
			id, err := argID(c, 0, name+" id")
			if err != nil {
				return err
			}
			var raw json.RawMessage
			if err := resource(a).Get(c.Context, "/"+url.PathEscape(id.String()), nil, &raw); err != nil {
				return r.fail(err, "failed to load "+name)
			}
			if len(raw) == 0 {
				r.printf("{}\n")
				return nil
			}
			out, err := json.MarshalIndent(raw, "", "  ")
			if err != nil {
				return err
			}
			r.printf("%s\n", out)
			return nil
		},
	}
}
