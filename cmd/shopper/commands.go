package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/example/quickcommerce/internal/apperr"
	"github.com/example/quickcommerce/internal/checkout"
	"github.com/example/quickcommerce/internal/gateway"
	"github.com/example/quickcommerce/internal/models"
	"github.com/example/quickcommerce/internal/utils"
)

func (s *shopper) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(s.errOut)
	return fs
}

// fail prints the shopper-facing message of err and returns exit code 1.
func (s *shopper) fail(err error) int {
	_, _ = fmt.Fprintln(s.errOut, "Error:", apperr.UserMessage(err))
	if e, ok := apperr.As(err); ok && e.Details != nil {
		if details, ok := e.Details.(map[string]string); ok {
			for field, problem := range details {
				_, _ = fmt.Fprintf(s.errOut, "  %s: %s\n", field, problem)
			}
		}
	}
	s.log.Debug("command failed", "error", err)
	return 1
}

func runLogin(ctx context.Context, s *shopper, args []string) int {
	fs := s.flags("login")
	email := fs.String("email", "", "account email (REQUIRED)")
	password := fs.String("password", "", "account password (REQUIRED)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	user, err := s.auth.Login(ctx, *email, *password)
	if err != nil {
		return s.fail(err)
	}
	_, _ = fmt.Fprintf(s.out, "Signed in as %s <%s>\n", user.Name, user.Email)
	return 0
}

func runLogout(ctx context.Context, s *shopper, _ []string) int {
	if err := s.auth.Logout(ctx); err != nil {
		return s.fail(err)
	}
	_, _ = fmt.Fprintln(s.out, "Signed out")
	return 0
}

func runWhoami(ctx context.Context, s *shopper, _ []string) int {
	if !s.tokens.IsAuthenticated() {
		_, _ = fmt.Fprintln(s.out, "Not signed in")
		return 1
	}
	user, err := s.auth.FetchProfile(ctx)
	if err != nil {
		return s.fail(err)
	}
	_, _ = fmt.Fprintf(s.out, "%s <%s> %s\n", user.Name, user.Email, user.Phone)
	return 0
}

func runProducts(ctx context.Context, s *shopper, args []string) int {
	fs := s.flags("products")
	var q models.ProductQuery
	fs.StringVar(&q.Search, "search", "", "search term")
	fs.StringVar(&q.Category, "category", "", "category slug")
	fs.IntVar(&q.Page, "page", 1, "page number")
	fs.IntVar(&q.Limit, "limit", 20, "page size")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	products, page, err := s.catalog.Products(ctx, q)
	if err != nil {
		return s.fail(err)
	}
	for _, p := range products {
		line := fmt.Sprintf("%-26s %-28s %12s", p.Slug, p.Name, utils.FormatPrice(p.Price, "INR"))
		if off := utils.CalculateDiscount(p.MRP, p.Price); off > 0 {
			line += fmt.Sprintf("  %d%% off", off)
		}
		_, _ = fmt.Fprintln(s.out, line)
	}
	_, _ = fmt.Fprintf(s.out, "page %d of %d (%d products)\n", page.Page, page.Pages, page.Total)
	return 0
}

func runCart(ctx context.Context, s *shopper, _ []string) int {
	c, err := s.cart.Fetch(ctx)
	if err != nil {
		return s.fail(err)
	}
	printCart(s.out, c)
	return 0
}

func runAdd(ctx context.Context, s *shopper, args []string) int {
	fs := s.flags("add")
	product := fs.String("product", "", "product slug or id (REQUIRED)")
	qty := fs.Int("qty", 1, "quantity")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	c, err := s.cart.Add(ctx, models.ProductRef{Slug: *product}, *qty, nil)
	if err != nil {
		return s.fail(err)
	}
	printCart(s.out, c)
	return 0
}

func runUpdate(ctx context.Context, s *shopper, args []string) int {
	fs := s.flags("update")
	item := fs.String("item", "", "cart line id (REQUIRED)")
	qty := fs.Int("qty", 1, "new quantity, 0 removes the line")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if _, err := s.cart.Fetch(ctx); err != nil {
		return s.fail(err)
	}
	c, err := s.cart.UpdateQuantity(ctx, *item, *qty)
	if err != nil {
		return s.fail(err)
	}
	printCart(s.out, c)
	return 0
}

func runRemove(ctx context.Context, s *shopper, args []string) int {
	fs := s.flags("remove")
	item := fs.String("item", "", "cart line id (REQUIRED)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if _, err := s.cart.Fetch(ctx); err != nil {
		return s.fail(err)
	}
	c, err := s.cart.Remove(ctx, *item)
	if err != nil {
		return s.fail(err)
	}
	printCart(s.out, c)
	return 0
}

func runOrders(ctx context.Context, s *shopper, args []string) int {
	fs := s.flags("orders")
	var params models.OrderListParams
	fs.StringVar(&params.Status, "status", "", "filter by status")
	fs.IntVar(&params.Page, "page", 1, "page number")
	fs.IntVar(&params.Limit, "limit", 10, "page size")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	orders, page, err := s.orders.List(ctx, params)
	if err != nil {
		return s.fail(err)
	}
	for _, o := range orders {
		_, _ = fmt.Fprintf(s.out, "%s  %s  %-9s %-8s %-8s %s\n", o.ID, o.CreatedAt.Format("2006-01-02 15:04"),
			o.PaymentMethod, o.Status, o.PaymentStatus, utils.FormatPrice(o.TotalAmount, "INR"))
	}
	_, _ = fmt.Fprintf(s.out, "page %d of %d (%d orders)\n", page.Page, page.Pages, page.Total)
	return 0
}

func runCancel(ctx context.Context, s *shopper, args []string) int {
	fs := s.flags("cancel")
	orderID := fs.String("order", "", "order id (REQUIRED)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	order, err := s.orders.Cancel(ctx, *orderID)
	if err != nil {
		return s.fail(err)
	}
	_, _ = fmt.Fprintf(s.out, "Order %s is now %s\n", order.ID, order.Status)
	return 0
}

func runAddress(ctx context.Context, s *shopper, args []string) int {
	if len(args) == 0 || args[0] == "list" {
		list, err := s.addresses.List(ctx)
		if err != nil {
			return s.fail(err)
		}
		for _, a := range list {
			mark := " "
			if a.Preferred() {
				mark = "*"
			}
			_, _ = fmt.Fprintf(s.out, "%s %s  %-6s %s, %s, %s %s\n", mark, a.ID, a.Label, a.Street, a.City, a.State, a.PostalCode)
		}
		return 0
	}

	switch args[0] {
	case "add":
		fs := s.flags("address add")
		var a models.Address
		fs.StringVar(&a.Label, "label", "home", "label")
		fs.StringVar(&a.Street, "street", "", "street (REQUIRED)")
		fs.StringVar(&a.City, "city", "", "city (REQUIRED)")
		fs.StringVar(&a.State, "state", "", "state (REQUIRED)")
		fs.StringVar(&a.PostalCode, "postal", "", "PIN code (REQUIRED)")
		fs.StringVar(&a.Phone, "phone", "", "contact phone (REQUIRED)")
		fs.StringVar(&a.Landmark, "landmark", "", "landmark")
		fs.BoolVar(&a.IsDefault, "default", false, "make this the default address")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if err := checkout.ValidateAddress(&a); err != nil {
			return s.fail(err)
		}
		saved, err := s.addresses.Save(ctx, a)
		if err != nil {
			return s.fail(err)
		}
		_, _ = fmt.Fprintf(s.out, "Saved address %s\n", saved.ID)
		return 0
	case "delete":
		fs := s.flags("address delete")
		id := fs.String("id", "", "address id (REQUIRED)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if err := s.addresses.Delete(ctx, *id); err != nil {
			return s.fail(err)
		}
		_, _ = fmt.Fprintln(s.out, "Address deleted")
		return 0
	case "check":
		fs := s.flags("address check")
		postal := fs.String("postal", "", "PIN code (REQUIRED)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		ok, err := s.addresses.CheckDeliverability(ctx, *postal)
		if err != nil {
			s.log.Warn("deliverability check failed", "error", err)
		}
		if ok {
			_, _ = fmt.Fprintf(s.out, "We deliver to %s\n", *postal)
			return 0
		}
		_, _ = fmt.Fprintf(s.out, "We do not deliver to %s yet\n", *postal)
		return 1
	}

	_, _ = fmt.Fprintf(s.errOut, "Unknown address command: %s\n", args[0])
	return 2
}

func runCheckout(ctx context.Context, s *shopper, args []string) int {
	fs := s.flags("checkout")
	method := fs.String("method", models.PaymentMethodCOD, "payment method: cod or razorpay")
	addressID := fs.String("address", "", "saved address id, defaults to the preferred one")
	instructions := fs.String("instructions", "", "delivery instructions")
	attempts := fs.Int("attempts", 3, "payment attempts before giving up")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if !s.tokens.IsAuthenticated() {
		_, _ = fmt.Fprintln(s.errOut, "Please log in first.")
		return 1
	}
	c, err := s.cart.Fetch(ctx)
	if err != nil {
		return s.fail(err)
	}
	if len(c.Items) == 0 {
		_, _ = fmt.Fprintln(s.errOut, "Your cart is empty.")
		return 1
	}
	printCart(s.out, c)

	bridge := gateway.NewBrowserBridge(gateway.BrowserConfig{
		Addr:      s.cfg.GatewayCallbackAddr,
		ScriptURL: s.cfg.GatewayScriptURL,
		Logger:    s.log,
		Opener: func(_ context.Context, l gateway.Launch) error {
			_, _ = fmt.Fprintf(s.out, "Open %s in your browser to pay %s\n",
				l.PageURL, utils.FormatPrice(float64(l.Session.Amount)/100, l.Session.Currency))
			return nil
		},
	})
	if *method == models.PaymentMethodRazorpay {
		if err := bridge.Start(ctx); err != nil {
			return s.fail(apperr.Wrap(apperr.KindGateway, err, "Could not start the payment window."))
		}
		defer func() { _ = bridge.Close() }()
	}

	nav := checkout.Navigators{printNavigator{out: s.out}, s.telegram, checkout.LogNavigator{Logger: s.log}}
	o := checkout.New(s.orders, s.addresses, s.cart, bridge, nav, s.tokens,
		checkout.WithLogger(s.log),
		checkout.WithMetrics(s.metrics),
		checkout.WithCallbackTimeout(s.cfg.GatewayWait),
		checkout.WithDeliverabilityCheck(),
	)

	if _, err := o.LoadAddresses(ctx); err != nil {
		return s.fail(err)
	}
	if *addressID != "" {
		if err := o.SelectAddressByID(*addressID); err != nil {
			return s.fail(err)
		}
	}
	if a := o.Selected(); a != nil {
		_, _ = fmt.Fprintf(s.out, "Delivering to %s, %s %s\n", a.Street, a.City, a.PostalCode)
	}

	res := o.Submit(ctx, checkout.SubmitRequest{PaymentMethod: *method, DeliveryInstructions: *instructions})
	for attempt := 1; paymentRetryable(res) && attempt < *attempts && ctx.Err() == nil; attempt++ {
		_, _ = fmt.Fprintln(s.out, res.Message)
		_, _ = fmt.Fprintln(s.out, "Retrying payment…")
		res = o.RetryPayment(ctx)
	}

	if res.Completed() {
		return 0
	}
	if res.Err == nil || errors.Is(res.Err, checkout.ErrBusy) {
		_, _ = fmt.Fprintln(s.errOut, res.Message)
		if res.OrderID != "" {
			_, _ = fmt.Fprintf(s.errOut, "Order %s is waiting for payment.\n", res.OrderID)
		}
		return 1
	}
	return s.fail(res.Err)
}

// paymentRetryable reports whether the gateway may be reopened for res.
// A verification failure may already have captured the money, so it is
// reported for support instead of paid again.
func paymentRetryable(res checkout.Result) bool {
	if res.State != checkout.StateAwaitingPayment {
		return false
	}
	if res.Err == nil {
		return true
	}
	e, ok := apperr.As(res.Err)
	return ok && e.Kind == apperr.KindGateway && !e.Misconfigured
}

func printCart(w io.Writer, c models.Cart) {
	if len(c.Items) == 0 {
		_, _ = fmt.Fprintln(w, "Your cart is empty")
		return
	}
	for _, item := range c.Items {
		price := "-"
		if item.Price != nil {
			price = utils.FormatPrice(*item.Price, "INR")
		}
		_, _ = fmt.Fprintf(w, "%s  %-28s x%-3d %12s\n", item.ID, item.ProductName, item.Quantity, price)
	}
	_, _ = fmt.Fprintf(w, "%d items, total %s\n", c.TotalItems, utils.FormatPrice(c.Total, "INR"))
}

type printNavigator struct {
	out io.Writer
}

func (n printNavigator) ShowConfirmation(_ context.Context, c models.Confirmation) {
	var b strings.Builder
	fmt.Fprintf(&b, "Order %s confirmed\n", c.OrderID)
	for _, item := range c.Items {
		fmt.Fprintf(&b, "  %s x%d\n", item.ProductName, item.Quantity)
	}
	fmt.Fprintf(&b, "Total %s", utils.FormatPrice(c.Amount, c.Currency))
	if c.PaymentID != "" {
		fmt.Fprintf(&b, ", paid (%s)", c.PaymentID)
	} else {
		b.WriteString(", pay on delivery")
	}
	_, _ = fmt.Fprintln(n.out, b.String())
}
