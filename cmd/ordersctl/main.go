// Command ordersctl inspects and updates orders directly in the order store.
//
//	ordersctl list [-status waiting_for_payment] [-limit 50]
//	ordersctl get CODE
//	ordersctl set-status CODE STATUS
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/WheelyWonka/toaste/internal/config"
	"github.com/WheelyWonka/toaste/internal/models"
	"github.com/WheelyWonka/toaste/internal/ordercode"
	"github.com/WheelyWonka/toaste/internal/pricing"
	"github.com/WheelyWonka/toaste/internal/repository"
	"github.com/olekukonko/tablewriter"
)

var errUsage = errors.New("usage: ordersctl list [-status S] [-limit N] | get CODE | set-status CODE STATUS")

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := repository.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open order store: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	if err := run(ctx, os.Args[1:], os.Stdout, store); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		closeStore()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer, store repository.OrderRepository) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "list":
		fs := flag.NewFlagSet("list", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		status := fs.String("status", "", "only list orders with this status")
		limit := fs.Int("limit", 50, "maximum number of orders")
		if err := fs.Parse(args[1:]); err != nil {
			return fmt.Errorf("list: %w", err)
		}

		filter := repository.ListFilter{Limit: *limit}
		if *status != "" {
			parsed, err := models.ParseOrderStatus(*status)
			if err != nil {
				return err
			}
			filter.Status = parsed
		}

		orders, err := store.List(ctx, filter)
		if err != nil {
			return fmt.Errorf("listing orders: %w", err)
		}
		return renderOrders(out, orders)

	case "get":
		if len(args) != 2 {
			return errUsage
		}
		order, err := store.GetByCode(ctx, ordercode.Normalize(args[1]))
		if err != nil {
			return fmt.Errorf("getting order %s: %w", args[1], err)
		}
		return renderOrder(out, order)

	case "set-status":
		if len(args) != 3 {
			return errUsage
		}
		status, err := models.ParseOrderStatus(args[2])
		if err != nil {
			return err
		}
		order, err := store.UpdateStatus(ctx, ordercode.Normalize(args[1]), status)
		if err != nil {
			return fmt.Errorf("updating order %s: %w", args[1], err)
		}
		fmt.Fprintf(out, "%s -> %s\n", order.Code, order.Status)
		return nil

	default:
		return errUsage
	}
}

func renderOrders(out io.Writer, orders []models.Order) error {
	table := tablewriter.NewWriter(out)
	table.Header("Code", "Created", "Status", "Customer", "Covers", "Total")

	for _, o := range orders {
		if err := table.Append([]string{
			o.Code,
			o.CreatedAt.Format("2006-01-02 15:04"),
			string(o.Status),
			o.Customer.Email,
			strconv.Itoa(o.Pricing.TotalQuantity),
			pricing.Display(o.Pricing.Total),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func renderOrder(out io.Writer, o *models.Order) error {
	fmt.Fprintf(out, "Order %s (%s), %s\n", o.Code, o.Status, o.CreatedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(out, "Customer: %s <%s>\n", o.Customer.Name, o.Customer.Email)
	if o.ShippingReference != "" {
		fmt.Fprintf(out, "Shipping: %s\n", o.ShippingReference)
	}

	table := tablewriter.NewWriter(out)
	table.Header("Spokes", "Wheel", "Qty")
	for _, item := range o.LineItems {
		if err := table.Append([]string{
			strconv.Itoa(int(item.SpokeCount)),
			string(item.WheelSize),
			strconv.Itoa(item.Quantity),
		}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	p := o.Pricing
	fmt.Fprintf(out, "Discount: %s\nTax: %s\nShipping: %s\nTotal: %s %s\n",
		pricing.Display(p.DiscountAmount),
		pricing.Display(p.TaxAmount),
		pricing.Display(p.ShippingFee),
		pricing.Display(p.Total),
		models.Currency,
	)
	return nil
}
