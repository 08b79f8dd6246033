package notification

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"github.com/WheelyWonka/toaste/internal/models"
	"github.com/WheelyWonka/toaste/internal/pricing"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names an email sent for an order
type Template string

const (
	TemplateCustomer Template = "customer"
	TemplateOwner    Template = "owner"
)

var ErrUnknownTemplate = errors.New("unknown email template")

var subjects = map[string]map[Template]string{
	"en": {
		TemplateCustomer: "Your Toasté Bike Polo Order - %s",
		TemplateOwner:    "New Order Received - %s",
	},
	"fr": {
		TemplateCustomer: "Votre commande Toasté Bike Polo - %s",
		TemplateOwner:    "New Order Received - %s",
	},
}

// Config holds the addresses used by the notifier
type Config struct {
	From         string
	OwnerEmail   string
	PaymentEmail string
}

// Notifier renders and sends order emails
type Notifier struct {
	sender    Sender
	cfg       Config
	templates *template.Template
	logger    *slog.Logger
}

// NewNotifier parses the embedded templates
func NewNotifier(sender Sender, cfg Config, logger *slog.Logger) (*Notifier, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing email templates: %w", err)
	}

	return &Notifier{
		sender:    sender,
		cfg:       cfg,
		templates: tmpl,
		logger:    logger,
	}, nil
}

type itemView struct {
	Quantity   int
	SpokeCount int
	WheelSize  string
}

type orderView struct {
	Code              string
	CustomerName      string
	CustomerEmail     string
	Address           string
	Locale            string
	Notes             string
	Items             []itemView
	Subtotal          string
	Discount          string
	HasDiscount       bool
	Tax               string
	Shipping          string
	ShippingReference string
	Total             string
	PaymentEmail      string
	CreatedAt         string
}

// Send renders tmpl for order in locale and delivers it. Customer mail goes
// to the order's email, owner mail to the configured owner address.
func (n *Notifier) Send(ctx context.Context, tmpl Template, locale string, order *models.Order) error {
	locale = models.NormalizeLocale(locale)

	var (
		to       string
		fileName string
	)
	switch tmpl {
	case TemplateCustomer:
		to = order.Customer.Email
		fileName = "customer_" + locale + ".html"
	case TemplateOwner:
		to = n.cfg.OwnerEmail
		fileName = "owner.html"
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTemplate, tmpl)
	}
	if to == "" {
		return fmt.Errorf("no recipient for %s email", tmpl)
	}

	var body bytes.Buffer
	if err := n.templates.ExecuteTemplate(&body, fileName, n.view(order)); err != nil {
		return fmt.Errorf("rendering %s email: %w", tmpl, err)
	}

	msg := Message{
		From:    n.cfg.From,
		To:      []string{to},
		Subject: fmt.Sprintf(subjects[locale][tmpl], order.Code),
		HTML:    body.String(),
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("sending %s email for %s: %w", tmpl, order.Code, err)
	}

	n.logger.InfoContext(ctx, "email sent", "template", string(tmpl), "order_code", order.Code, "locale", locale)
	return nil
}

// OrderCreated sends the customer confirmation and the owner alert. Both
// are attempted even if the first fails.
func (n *Notifier) OrderCreated(ctx context.Context, order *models.Order) error {
	errs := []error{n.Send(ctx, TemplateCustomer, order.Locale, order)}
	if n.cfg.OwnerEmail != "" {
		errs = append(errs, n.Send(ctx, TemplateOwner, order.Locale, order))
	}
	return errors.Join(errs...)
}

func (n *Notifier) view(order *models.Order) orderView {
	items := make([]itemView, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		items = append(items, itemView{
			Quantity:   item.Quantity,
			SpokeCount: int(item.SpokeCount),
			WheelSize:  string(item.WheelSize),
		})
	}

	p := order.Pricing
	subtotal := p.DiscountedSubtotal.Add(p.DiscountAmount)
	addr := order.Customer.ShippingAddress

	return orderView{
		Code:              order.Code,
		CustomerName:      order.Customer.Name,
		CustomerEmail:     order.Customer.Email,
		Address:           formatAddress(addr),
		Locale:            order.Locale,
		Notes:             order.Notes,
		Items:             items,
		Subtotal:          pricing.Display(subtotal),
		Discount:          pricing.Display(p.DiscountAmount),
		HasDiscount:       p.DiscountAmount.IsPositive(),
		Tax:               pricing.Display(p.TaxAmount),
		Shipping:          pricing.Display(p.ShippingFee),
		ShippingReference: order.ShippingReference,
		Total:             pricing.Display(p.Total),
		PaymentEmail:      n.cfg.PaymentEmail,
		CreatedAt:         order.CreatedAt.Format(time.RFC1123),
	}
}

func formatAddress(a models.Address) string {
	parts := []string{a.Street, a.City}
	if a.Region != "" {
		parts = append(parts, a.Region)
	}
	parts = append(parts, a.PostalCode, a.Country)
	return strings.Join(parts, ", ")
}
