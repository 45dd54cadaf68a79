package cli

import (
	"context"
	"strings"

	"github.com/sherryycxie/tables/internal/client/models"
)

// Register prompts for account details and signs up.
func (a *App) Register(ctx context.Context, args []string) error {
	email, err := a.argOrAsk(args, "Email")
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return a.report(ctx, "read password", err)
	}
	first, err := a.ask("First name")
	if err != nil {
		return err
	}
	last, err := a.ask("Last name (optional)")
	if err != nil {
		return err
	}
	display := models.ComposeDisplayName(first, last)

	if err := a.svc.SignUp(ctx, email, password, display, first, last); err != nil {
		return a.report(ctx, "sign up", err)
	}
	a.println("Welcome,", display+"!")
	return nil
}

// Login prompts for credentials and signs in.
func (a *App) Login(ctx context.Context, args []string) error {
	email, err := a.argOrAsk(args, "Email")
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return a.report(ctx, "read password", err)
	}
	if err := a.svc.SignIn(ctx, email, password); err != nil {
		return a.report(ctx, "sign in", err)
	}
	a.println("Signed in as", email)
	return a.ListTables(ctx)
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.svc.SignOut(ctx); err != nil {
		return a.report(ctx, "sign out", err)
	}
	a.lastTables, a.lastCards, a.lastReflections = nil, nil, nil
	clear(a.watching)
	a.println("Signed out.")
	return nil
}

// ShowProfile prints the profile, or with "edit" renames the user.
func (a *App) ShowProfile(ctx context.Context, args []string) error {
	if len(args) > 0 && args[0] == "edit" {
		first, err := a.ask("First name")
		if err != nil {
			return err
		}
		last, err := a.ask("Last name (optional)")
		if err != nil {
			return err
		}
		p, err := a.svc.UpdateProfile(ctx, first, last)
		if err != nil {
			return a.report(ctx, "update profile", err)
		}
		a.println("Profile updated:", p.FullName())
		return nil
	}

	p := a.svc.Profile()
	if p == nil {
		a.println("No profile loaded.")
		return nil
	}
	a.printf("Name:  %s\n", p.FullName())
	if p.Email != nil {
		a.printf("Email: %s\n", *p.Email)
	}
	return nil
}

// Search looks up other users by name or email.
func (a *App) Search(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.report(ctx, "search", usage("search <name or email>"))
	}
	found, err := a.svc.SearchUsers(ctx, strings.Join(args, " "))
	if err != nil {
		return a.report(ctx, "search", err)
	}
	if len(found) == 0 {
		a.println("No users found.")
		return nil
	}
	for _, p := range found {
		email := ""
		if p.Email != nil {
			email = *p.Email
		}
		a.printf("  %s <%s>\n", p.FullName(), email)
	}
	return nil
}
