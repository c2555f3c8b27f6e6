// Command shopper is a terminal client for the QuickCommerce backend.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/quickcommerce/internal/config"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

type command func(ctx context.Context, s *shopper, args []string) int

var commands = map[string]command{
	"login":    runLogin,
	"logout":   runLogout,
	"whoami":   runWhoami,
	"products": runProducts,
	"cart":     runCart,
	"add":      runAdd,
	"update":   runUpdate,
	"remove":   runRemove,
	"orders":   runOrders,
	"cancel":   runCancel,
	"address":  runAddress,
	"checkout": runCheckout,
}

// Run is the entrypoint for testing
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}
	if args[1] == "help" || args[1] == "-h" || args[1] == "--help" {
		printUsage(stdout)
		return 0
	}

	cmd, ok := commands[args[1]]
	if !ok {
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newShopper(ctx, cfg, log, stdout, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer s.close()

	return cmd(ctx, s, args[2:])
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, `Usage: shopper <command> [flags]

Commands:
  login     -email E -password P    sign in
  logout                            sign out and forget the session
  whoami                            show the signed-in user
  products  [-search S] [-category C] [-page N]
  cart                              show the cart
  add       -product SLUG [-qty N]  add a product
  update    -item ID -qty N         change a quantity (0 removes)
  remove    -item ID                remove a line
  orders    [-status S] [-page N]   list your orders
  cancel    -order ID               cancel an unpaid order
  address   list | add | delete | check   manage delivery addresses
  checkout  -method cod|razorpay [-address ID] [-instructions TEXT]`)
}
