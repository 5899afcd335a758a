package control

import "context"

// Event names emitted by a drop-in instance.
type Event string

const (
	EventPaymentOptionSelected      Event = "paymentOptionSelected"
	EventPaymentMethodRequestable   Event = "paymentMethodRequestable"
	EventNoPaymentMethodRequestable Event = "noPaymentMethodRequestable"
)

// DefaultContainer is the selector of the widget mount point.
const DefaultContainer = "#dropin-container"

// WidgetOptions are passed to the vendor SDK when a widget is created.
type WidgetOptions struct {
	Authorization string         `json:"authorization"`
	Container     string         `json:"container"`
	Card          CardOptions    `json:"card"`
	PayPal        *PayPalOptions `json:"paypal,omitempty"`
}

// CardOptions carries style overrides for the hosted card fields.
type CardOptions struct {
	Overrides CardOverrides `json:"overrides"`
}

// CardOverrides maps hosted-field selectors to CSS properties.
type CardOverrides struct {
	Styles map[string]map[string]string `json:"styles"`
}

// PayPalOptions enables the PayPal button in the widget.
type PayPalOptions struct {
	Flow        string            `json:"flow"`
	ButtonStyle map[string]string `json:"buttonStyle,omitempty"`
}

// PaymentMethod is the payload returned by a payment-method request.
type PaymentMethod struct {
	Nonce string `json:"nonce"`
	Type  string `json:"type,omitempty"`
}

// Dropin creates vendor widget instances.
type Dropin interface {
	Create(ctx context.Context, opts WidgetOptions) (Instance, error)
}

// Instance is a live vendor widget.
type Instance interface {
	RequestPaymentMethod(ctx context.Context) (*PaymentMethod, error)
	Teardown() error
	On(event Event, handler func())
	IsPaymentMethodRequestable() bool
}

// BuildWidgetOptions derives the create options from the stored settings.
func BuildWidgetOptions(s Settings, container string) WidgetOptions {
	if container == "" {
		container = DefaultContainer
	}
	opts := WidgetOptions{
		Authorization: s.TokenizationKey,
		Container:     container,
		Card: CardOptions{Overrides: CardOverrides{Styles: map[string]map[string]string{
			"input":    {},
			".number":  {"font-size": formatPt(s.CardFontSize)},
			".invalid": {"color": "red"},
		}}},
	}
	if s.PayPalEnabled {
		opts.PayPal = &PayPalOptions{
			Flow:        "vault",
			ButtonStyle: map[string]string{"size": "responsive", "color": "blue"},
		}
	}
	return opts
}
