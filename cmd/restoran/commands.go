package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	appkg "github.com/xenking/restoran/internal/app"
	"github.com/xenking/restoran/internal/domain/cart"
	"github.com/xenking/restoran/internal/domain/menu"
	"github.com/xenking/restoran/internal/domain/order"
	"github.com/xenking/restoran/internal/domain/session"
	"github.com/xenking/restoran/pkg/health"
)

type cli struct {
	app *appkg.App
	out io.Writer
}

type command struct {
	name string
	args string
	help string
	rule session.Rule
	run  func(c *cli, ctx context.Context, args []string) error
}

var commands = []command{
	{name: "menu", args: "[-category c]", help: "list the menu", run: (*cli).menu},
	{name: "food", args: "<id>", help: "show one menu item", run: (*cli).food},
	{name: "cart", args: "show|add <id> [qty]|remove <id>|set <id> <qty>|clear", help: "manage the cart", run: (*cli).cart},
	{name: "login", args: "<email> <password>", help: "sign in", run: (*cli).login},
	{name: "register", args: "-name -email -phone -password -confirm", help: "create an account", run: (*cli).register},
	{name: "reset-password", args: "-email -old -new -confirm", help: "change a password", run: (*cli).resetPassword},
	{name: "logout", help: "sign out", run: (*cli).logout},
	{name: "whoami", args: "[-refresh]", help: "show the signed-in user", rule: session.Authenticated, run: (*cli).whoami},
	{name: "quote", args: "[-type dine_in|takeaway]", help: "price the cart against the live menu", rule: session.Authenticated, run: (*cli).quote},
	{name: "order", args: "[-type] [-table n] [-address id] [-payment cash|card] [-street -city -zip]", help: "place an order from the cart", rule: session.Authenticated, run: (*cli).order},
	{name: "orders", help: "list orders", rule: session.Authenticated, run: (*cli).orders},
	{name: "order-status", args: "<id> <pending|preparing|completed|cancelled>", help: "change an order status", rule: session.AdminOnly, run: (*cli).orderStatus},
	{name: "doctor", help: "check the API and the store", run: (*cli).doctor},
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: restoran [-api-base-url url] [-log-level l] <command> [args]")
	_, _ = fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, cmd := range commands {
		_, _ = fmt.Fprintf(tw, "  %s %s\t%s\n", cmd.name, cmd.args, cmd.help)
	}
	_ = tw.Flush()
}

func run(ctx context.Context, c *cli, name string, args []string) error {
	for _, cmd := range commands {
		if cmd.name != name {
			continue
		}
		if err := c.app.Guard.Require(cmd.rule); err != nil {
			return errors.Wrap(err, name)
		}
		return cmd.run(c, ctx, args)
	}
	return errors.Errorf("unknown command %q, run restoran help", name)
}

func (c *cli) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func (c *cli) menu(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("menu", flag.ContinueOnError)
	category := fs.String("category", "", "only this category")
	if err := fs.Parse(args); err != nil {
		return err
	}

	catalog := c.app.API.Menu()
	var (
		foods []menu.Food
		err   error
	)
	if *category != "" {
		foods, err = catalog.ListByCategory(ctx, *category)
	} else {
		foods, err = catalog.ListFoods(ctx)
	}
	if err != nil {
		return errors.Wrap(err, "menu")
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tDINE-IN\tTAKEAWAY\t")
	for _, cat := range menu.Categories(foods) {
		for _, f := range foods {
			if f.Category != cat {
				continue
			}
			name := f.Name
			if !f.Available {
				name += " (unavailable)"
			}
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", f.ID, name, f.Category, money(f.PriceDineIn), money(f.PriceTakeaway))
		}
	}
	return tw.Flush()
}

func (c *cli) food(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: food <id>")
	}
	f, err := c.app.API.Menu().GetFood(ctx, args[0])
	if err != nil {
		return errors.Wrap(err, "food")
	}
	c.printf("%s (%s)\n%s\ndine-in %s, takeaway %s\n", f.Name, f.Category, f.Description, money(f.PriceDineIn), money(f.PriceTakeaway))
	return nil
}

func (c *cli) cart(ctx context.Context, args []string) error {
	m := c.app.Cart
	if len(args) == 0 {
		args = []string{"show"}
	}

	switch sub, rest := args[0], args[1:]; sub {
	case "show":
		items := m.Items()
		if len(items) == 0 {
			c.printf("Cart is empty\n")
			return nil
		}
		tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "ID\tNAME\tQTY\tPRICE\tSUBTOTAL\t")
		for _, li := range items {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t\n", li.ID, li.Name, li.Quantity, money(li.Price), money(li.Subtotal()))
		}
		_, _ = fmt.Fprintf(tw, "\t\t%d\t\t%s\t\n", m.Count(), money(m.TotalPrice()))
		return tw.Flush()
	case "add":
		if len(rest) < 1 || len(rest) > 2 {
			return errors.New("usage: cart add <id> [qty]")
		}
		q := 1
		if len(rest) == 2 {
			var err error
			if q, err = strconv.Atoi(rest[1]); err != nil {
				return errors.Wrap(err, "quantity")
			}
			if q < 1 {
				return errors.Errorf("quantity must be at least 1, got %d", q)
			}
		}
		f, err := c.app.API.Menu().GetFood(ctx, rest[0])
		if err != nil {
			return errors.Wrap(err, "look up food")
		}
		if !f.Available {
			return errors.Errorf("%s is not available", f.Name)
		}
		m.AddItem(ctx, cart.Product{ID: f.ID, Name: f.Name, Image: f.Image, Price: f.PriceDineIn})
		if q > 1 {
			if li, ok := m.Find(f.ID); ok {
				m.UpdateQuantity(ctx, f.ID, li.Quantity-1+q)
			}
		}
		return nil
	case "remove":
		if len(rest) != 1 {
			return errors.New("usage: cart remove <id>")
		}
		m.RemoveItem(ctx, rest[0])
		return nil
	case "set":
		if len(rest) != 2 {
			return errors.New("usage: cart set <id> <qty>")
		}
		q, err := strconv.Atoi(rest[1])
		if err != nil {
			return errors.Wrap(err, "quantity")
		}
		m.UpdateQuantity(ctx, rest[0], q)
		return nil
	case "clear":
		m.ClearCart(ctx)
		return nil
	default:
		return errors.Errorf("unknown cart command %q", sub)
	}
}

func (c *cli) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: login <email> <password>")
	}
	return c.app.Session.Login(ctx, args[0], args[1])
}

func (c *cli) register(ctx context.Context, args []string) error {
	var reg session.Registration
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.StringVar(&reg.Name, "name", "", "full name")
	fs.StringVar(&reg.Email, "email", "", "email address")
	fs.StringVar(&reg.Phone, "phone", "", "phone number")
	fs.StringVar(&reg.Password, "password", "", "password, at least 6 characters")
	fs.StringVar(&reg.PasswordConfirm, "confirm", "", "password again")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return c.app.Session.Register(ctx, reg)
}

func (c *cli) resetPassword(ctx context.Context, args []string) error {
	var req session.PasswordReset
	fs := flag.NewFlagSet("reset-password", flag.ContinueOnError)
	fs.StringVar(&req.Email, "email", "", "account email")
	fs.StringVar(&req.OldPassword, "old", "", "current password")
	fs.StringVar(&req.NewPassword, "new", "", "new password, at least 6 characters")
	fs.StringVar(&req.NewPasswordConfirm, "confirm", "", "new password again")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return c.app.Session.ResetPassword(ctx, req)
}

func (c *cli) logout(ctx context.Context, _ []string) error {
	return c.app.Session.Logout(ctx)
}

func (c *cli) whoami(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ContinueOnError)
	refresh := fs.Bool("refresh", false, "reload the profile from the server")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *refresh {
		if err := c.app.Session.Refresh(ctx); err != nil {
			return err
		}
	}

	u := c.app.Session.User()
	if u == nil {
		return session.ErrNotAuthenticated
	}
	c.printf("%s <%s>\nid: %s\nrole: %s\n", u.Name, u.Email, u.ID, u.Role)
	if u.Phone != "" {
		c.printf("phone: %s\n", u.Phone)
	}
	return nil
}

func (c *cli) quote(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("quote", flag.ContinueOnError)
	typ := fs.String("type", string(order.DineIn), "dine_in or takeaway")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d, err := c.app.Orders.Quote(ctx, order.Type(*typ))
	if err != nil {
		return err
	}
	c.printDraft(d)
	return nil
}

func (c *cli) printDraft(d order.Draft) {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "FOOD\tQTY\tPRICE\t")
	for _, it := range d.Items {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t\n", it.FoodID, it.Quantity, money(it.Price))
	}
	_, _ = fmt.Fprintf(tw, "TOTAL (%s)\t\t%s\t\n", d.Type, money(d.Total))
	_ = tw.Flush()
	for _, id := range d.Fallbacks {
		c.printf("note: %s is no longer on the menu, priced from the cart\n", id)
	}
}

func (c *cli) order(ctx context.Context, args []string) error {
	var (
		req               order.Request
		typ, payment      string
		street, city, zip string
	)
	fs := flag.NewFlagSet("order", flag.ContinueOnError)
	fs.StringVar(&typ, "type", string(order.DineIn), "dine_in or takeaway")
	fs.IntVar(&req.TableNumber, "table", 0, "table number for dine-in")
	fs.StringVar(&req.AddressID, "address", "", "saved address id for takeaway")
	fs.StringVar(&payment, "payment", string(order.Cash), "cash or card")
	fs.StringVar(&street, "street", "", "new address street")
	fs.StringVar(&city, "city", "", "new address city")
	fs.StringVar(&zip, "zip", "", "new address zip code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req.Type = order.Type(typ)
	req.PaymentMethod = order.PaymentMethod(payment)
	if street != "" || city != "" || zip != "" {
		req.NewAddress = &order.NewAddress{Street: street, City: city, ZipCode: zip}
	}

	res, err := c.app.Orders.Checkout(ctx, req)
	if err != nil {
		return err
	}
	c.printDraft(res.Draft)
	c.printf("order %s: %s\n", res.Order.ID, res.Order.Status)
	return nil
}

func (c *cli) orders(ctx context.Context, _ []string) error {
	list, err := c.app.Orders.History(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		c.printf("No orders\n")
		return nil
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tCREATED\tTYPE\tSTATUS\tPAYMENT\tTOTAL\t")
	for _, o := range list {
		created := "-"
		if !o.CreatedAt.IsZero() {
			created = o.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n", o.ID, created, o.Type, o.Status, o.PaymentMethod, money(o.Total))
	}
	return tw.Flush()
}

func (c *cli) orderStatus(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: order-status <id> <status>")
	}
	return c.app.Orders.SetStatus(ctx, args[0], order.Status(args[1]))
}

func (c *cli) doctor(ctx context.Context, _ []string) error {
	results := c.app.Health.Run(ctx)
	for _, r := range results {
		status := "ok"
		if !r.OK() {
			status = "FAIL: " + r.Err.Error()
		}
		c.printf("%-6s %-8s %s\n", r.Name, r.Took.Round(time.Millisecond), status)
	}
	if !health.Healthy(results) {
		return errors.New("some checks failed")
	}
	return nil
}
