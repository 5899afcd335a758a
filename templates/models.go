package templates

import (
	"time"

	"paycontrol/control"
)

// MerchantConfig configures the reference checkout endpoint served at /checkout.
type MerchantConfig struct {
	// Mode selects the charger: "sandbox" settles fake nonces, "stripe"
	// confirms a PaymentIntent.
	Mode            string `json:"mode" mapstructure:"mode" validate:"omitempty,oneof=sandbox stripe"`
	Currency        string `json:"currency" mapstructure:"currency" validate:"omitempty,len=3"`
	StripeSecretKey string `json:"stripeSecretKey" mapstructure:"stripeSecretKey" validate:"required_if=Mode stripe"`
}

// AppConfig represents the application configuration
type AppConfig struct {
	// Server
	Port      string `json:"port" mapstructure:"port" validate:"required,numeric"`
	DataDir   string `json:"dataDir" mapstructure:"dataDir" validate:"required"`
	PublicURL string `json:"publicURL" mapstructure:"publicURL" validate:"omitempty,url"`

	// HostToken protects the host configuration endpoints. Empty disables the check.
	HostToken string `json:"hostToken" mapstructure:"hostToken"`

	// Control properties
	TokenizationKey string  `json:"tokenizationKey" mapstructure:"tokenizationKey"`
	PaymentAmount   float64 `json:"paymentAmount" mapstructure:"paymentAmount" validate:"gte=0"`
	CheckoutURL     string  `json:"checkoutURL" mapstructure:"checkoutURL" validate:"omitempty,url"`
	PayPalEnabled   bool    `json:"paypalEnabled" mapstructure:"paypalEnabled"`
	DefaultFontSize float64 `json:"defaultFontSize" mapstructure:"defaultFontSize" validate:"gte=0"`
	CardFontSize    float64 `json:"cardFontSize" mapstructure:"cardFontSize" validate:"gte=0"`
	ButtonFontSize  float64 `json:"buttonFontSize" mapstructure:"buttonFontSize" validate:"gte=0"`

	// Widget timing
	InitDelayMs          int  `json:"initDelayMs" mapstructure:"initDelayMs" validate:"gte=0"`
	WidgetTimeoutSeconds int  `json:"widgetTimeoutSeconds" mapstructure:"widgetTimeoutSeconds" validate:"gte=0"`
	ForceErrorOnFailure  bool `json:"forceErrorOnPaymentMethodFailure" mapstructure:"forceErrorOnPaymentMethodFailure"`

	// CheckoutTimeoutSeconds bounds the checkout POST. Zero means no timeout.
	CheckoutTimeoutSeconds int `json:"checkoutTimeoutSeconds,omitempty" mapstructure:"checkoutTimeoutSeconds" validate:"gte=0"`

	Merchant MerchantConfig `json:"merchant" mapstructure:"merchant"`
}

// Snapshot returns the control properties as the host's first snapshot.
// Zero values are left absent so the control applies its defaults.
func (c AppConfig) Snapshot() control.Snapshot {
	s := control.Snapshot{
		TokenizationKey: control.String(c.TokenizationKey),
		PayPalEnabled:   control.Bool(c.PayPalEnabled),
	}
	if c.PaymentAmount != 0 {
		s.PaymentAmount = control.Float(c.PaymentAmount)
	}
	if c.CheckoutURL != "" {
		s.CheckoutURL = control.String(c.CheckoutURL)
	}
	if c.DefaultFontSize > 0 {
		s.DefaultFontSize = control.Float(c.DefaultFontSize)
	}
	if c.CardFontSize > 0 {
		s.CardFontSize = control.Float(c.CardFontSize)
	}
	if c.ButtonFontSize > 0 {
		s.ButtonFontSize = control.Float(c.ButtonFontSize)
	}
	return s
}

// InitDelay returns the widget debounce delay.
func (c AppConfig) InitDelay() time.Duration {
	return time.Duration(c.InitDelayMs) * time.Millisecond
}

// WidgetTimeout returns how long to wait for the browser to answer.
func (c AppConfig) WidgetTimeout() time.Duration {
	return time.Duration(c.WidgetTimeoutSeconds) * time.Second
}

// CheckoutTimeout returns the checkout POST timeout, zero when unset.
func (c AppConfig) CheckoutTimeout() time.Duration {
	return time.Duration(c.CheckoutTimeoutSeconds) * time.Second
}

// PageData is everything the control page needs on first render.
type PageData struct {
	Title     string
	View      control.View
	Container string
	Amount    float64
	QRURL     string
	PublicURL string
}
