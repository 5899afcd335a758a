package control

import "paycontrol/utils"

// Status is the payment status exposed to the host as PaymentStatus.
type Status string

const (
	StatusUninitialised Status = "uninitialised"
	StatusNew           Status = "new"
	StatusProcessing    Status = "processing"
	StatusCompleted     Status = "completed"
	StatusError         Status = "error"
)

// Outputs is what the host reads back after a notification.
type Outputs struct {
	PaymentStatus string `json:"PaymentStatus"`
}

// Valid reports whether s is one of the five known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusUninitialised, StatusNew, StatusProcessing, StatusCompleted, StatusError:
		return true
	}
	return false
}

// Terminal reports whether a submission attempt has finished in s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

func (s Status) String() string { return string(s) }

// Messages shown in the error label.
const (
	msgUninitialised = "The connection to the payment widget has not been initialised. Make sure you've specified correct TokenizationKey property value."
	msgInitFailed    = "There's been an error initialising the payment widget: %v\nAre you using correct TokenizationKey?"
	msgMethodFailed  = "There's been an error processing the payments: %v"
	msgCheckout      = "There's been an error processing payment: %v"
)

// setStatusLocked records a new status. Setting the current status again is a
// no-op. Callers must hold c.mu; the host notification is queued and delivered
// after the lock is released.
func (c *Control) setStatusLocked(s Status) bool {
	if s == c.status {
		return false
	}
	utils.Info("control", "Payment status changed", "from", string(c.status), "to", string(s))
	c.status = s
	switch s {
	case StatusUninitialised:
		c.message = msgUninitialised
	case StatusNew, StatusProcessing, StatusCompleted:
		c.message = ""
	}
	c.pendingNotify++
	c.viewDirty = true
	return true
}
