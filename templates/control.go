package templates

import (
	"strings"

	"github.com/a-h/templ"

	"paycontrol/control"
)

// DropinScriptURL is the vendor drop-in SDK loaded by the page.
const DropinScriptURL = "https://js.braintreegateway.com/web/dropin/1.43.0/js/dropin.min.js"

// bootStateID is the id of the JSON script the bridge reads on load.
const bootStateID = "paycontrol-state"

// BootState is the initial state handed to the browser bridge.
type BootState struct {
	View      control.View `json:"view"`
	Container string       `json:"container"`
}

// StyleVars returns the global font-size custom properties as inline CSS.
func StyleVars(v control.View) templ.SafeCSS {
	var b strings.Builder
	for _, s := range v.Styles {
		b.WriteString(s.Name)
		b.WriteString(":")
		b.WriteString(s.Value)
		b.WriteString(";")
	}
	return templ.SafeCSS(b.String())
}

func pageTitle(title string) string {
	if title == "" {
		return "Payment"
	}
	return title
}

func submitLabel(amount float64) string {
	if amount <= 0 {
		return "Pay"
	}
	return "Pay " + FormatAmount(amount)
}
