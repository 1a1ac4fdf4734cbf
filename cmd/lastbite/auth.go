package main

import (
	"time"

	"github.com/labujaya/lastbite/pkg/apiclient"
	"github.com/urfave/cli/v2"
)

func loginCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "sign in and store the session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, EnvVars: []string{"LASTBITE_PASSWORD"}, Required: true},
		},
		Action: func(c *cli.Context) error {
			a, err := r.open(c)
			if err != nil {
				return err
			}
			req := apiclient.LoginRequest{Username: c.String("username"), Password: c.String("password")}
			if err := a.Login(c.Context, req); err != nil {
				return r.fail(err, "Login failed")
			}
			if user := a.Users.Snapshot().User; user != nil {
				r.printf("signed in as %s\n", user.Username)
				return nil
			}
			r.printf("signed in\n")
			return nil
		},
	}
}

func registerCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "create a customer account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "username", Required: true},
			&cli.StringFlag{Name: "phone", Required: true},
			&cli.StringFlag{Name: "name", Usage: "full name", Required: true},
			&cli.StringFlag{Name: "password", EnvVars: []string{"LASTBITE_PASSWORD"}, Required: true},
			&cli.Float64Flag{Name: "lat", Required: true},
			&cli.Float64Flag{Name: "lon", Required: true},
		},
		Action: func(c *cli.Context) error {
			a, err := r.open(c)
			if err != nil {
				return err
			}
			message, err := a.Auth.Register(c.Context, apiclient.RegisterRequest{
				Email:       c.String("email"),
				Username:    c.String("username"),
				PhoneNumber: c.String("phone"),
				FullName:    c.String("name"),
				Password:    c.String("password"),
				Latitude:    c.Float64("lat"),
				Longitude:   c.Float64("lon"),
			})
			if err != nil {
				return r.fail(err, "Registration failed")
			}
			if message == "" {
				message = "registration successful"
			}
			r.printf("%s\n", message)
			return nil
		},
	}
}

func logoutCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "sign out and forget the stored session",
		Action: func(c *cli.Context) error {
			a, err := r.open(c)
			if err != nil {
				return err
			}
			if err := a.Logout(c.Context); err != nil {
				return r.fail(err, "Logout failed")
			}
			r.printf("signed out\n")
			return nil
		},
	}
}

func whoamiCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "show the signed-in user and token expiry",
		Action: func(c *cli.Context) error {
			a, err := r.session(c)
			if err != nil {
				return err
			}
			user := a.Users.Snapshot().User
			if user != nil {
				r.printf("id:       %s\nusername: %s\nname:     %s\nemail:    %s\n", user.ID, user.Username, user.FullName, user.Email)
				if coords, ok := user.Coordinates(); ok {
					r.printf("location: %s\n", coords)
				}
			}
			claims := a.Auth.Claims()
			if claims == nil {
				return nil
			}
			if user == nil && claims.Identity() != "" {
				r.printf("id:       %s\n", claims.Identity())
			}
			if expiry := claims.Expiry(); !expiry.IsZero() {
				state := "valid"
				if claims.ExpiredAt(time.Now()) {
					state = "expired, refreshed on next request"
				}
				r.printf("token:    %s until %s\n", state, expiry.Local().Format(time.RFC1123))
			}
			return nil
		},
	}
}
