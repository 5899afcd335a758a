package control

// Default font sizes, in points.
const (
	DefaultFontSize       = 18
	DefaultCardFontSize   = 20
	DefaultButtonFontSize = 22
)

// Snapshot is one configuration update from the host. A nil field means the
// host did not supply that property.
type Snapshot struct {
	TokenizationKey *string  `json:"TokenizationKey,omitempty"`
	PaymentAmount   *float64 `json:"PaymentAmount,omitempty"`
	CheckoutURL     *string  `json:"CheckoutURL,omitempty"`
	Reset           *bool    `json:"Reset,omitempty"`
	PayPalEnabled   *bool    `json:"PayPalEnabled,omitempty"`
	CardFontSize    *float64 `json:"CardFontSize,omitempty"`
	ButtonFontSize  *float64 `json:"ButtonFontSize,omitempty"`
	DefaultFontSize *float64 `json:"DefaultFontSize,omitempty"`
}

// String returns a pointer to v.
func String(v string) *string { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// Settings are the normalised values the control last acted on.
type Settings struct {
	TokenizationKey string
	PaymentAmount   float64
	CheckoutURL     string
	PayPalEnabled   bool
	CardFontSize    float64
	ButtonFontSize  float64
	DefaultFontSize float64

	// HasBeenReset latches while the host keeps the reset flag asserted.
	HasBeenReset bool
}

// DefaultSettings returns the settings of a freshly initialised control.
func DefaultSettings() Settings {
	return Settings{
		CardFontSize:    DefaultCardFontSize,
		ButtonFontSize:  DefaultButtonFontSize,
		DefaultFontSize: DefaultFontSize,
	}
}

// Change classifies what an update requires of the widget.
type Change int

const (
	NoChange Change = iota
	// Cosmetic changes only restyle the surface.
	Cosmetic
	// ResetAsNew recreates the widget without touching the status.
	ResetAsNew
	// ResetAsUninitialised tears the widget down and forces uninitialised.
	ResetAsUninitialised
)

func (c Change) String() string {
	switch c {
	case NoChange:
		return "none"
	case Cosmetic:
		return "cosmetic"
	case ResetAsNew:
		return "reset_as_new"
	case ResetAsUninitialised:
		return "reset_as_uninitialised"
	default:
		return "unknown"
	}
}

// Resets reports whether the widget has to be recreated.
func (c Change) Resets() bool { return c >= ResetAsNew }

func (c Change) max(o Change) Change {
	if o > c {
		return o
	}
	return c
}

// Classify compares an inbound snapshot with the stored settings and returns
// the most severe change it requires together with the settings to store.
func Classify(prev Settings, next Snapshot) (Change, Settings) {
	change := NoChange
	out := prev

	key := valueOr(next.TokenizationKey, "")
	if key != prev.TokenizationKey {
		out.TokenizationKey = key
		change = change.max(ResetAsUninitialised)
	}

	paypal := valueOr(next.PayPalEnabled, false)
	if paypal != prev.PayPalEnabled {
		out.PayPalEnabled = paypal
		change = change.max(ResetAsNew)
	}

	if valueOr(next.Reset, false) {
		if !prev.HasBeenReset {
			out.HasBeenReset = true
			change = change.max(ResetAsNew)
		}
	} else {
		out.HasBeenReset = false
	}

	// Absent or zero amount/URL keep the previous value.
	if amount := valueOr(next.PaymentAmount, 0); amount != 0 {
		out.PaymentAmount = amount
	}
	if url := valueOr(next.CheckoutURL, ""); url != "" {
		out.CheckoutURL = url
	}

	if card := fontOr(next.CardFontSize, DefaultCardFontSize); card != prev.CardFontSize {
		out.CardFontSize = card
		change = change.max(ResetAsNew)
	}

	if def := fontOr(next.DefaultFontSize, DefaultFontSize); def != prev.DefaultFontSize {
		out.DefaultFontSize = def
		change = change.max(Cosmetic)
	}
	if btn := fontOr(next.ButtonFontSize, DefaultButtonFontSize); btn != prev.ButtonFontSize {
		out.ButtonFontSize = btn
		change = change.max(Cosmetic)
	}

	return change, out
}

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

// fontOr treats zero like an absent value, as the host sends 0 for cleared
// numeric properties.
func fontOr(p *float64, def float64) float64 {
	if p == nil || *p <= 0 {
		return def
	}
	return *p
}
