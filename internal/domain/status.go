package domain

type OrderType string

const (
	OrderTypeEmployee OrderType = "Employee"
	OrderTypeManager  OrderType = "Manager"
)

type Status string

const (
	StatusNew             Status = "New"
	StatusAwaitingPayment Status = "AwaitingPayment"
	StatusCancelled       Status = "Cancelled"
	StatusDeleted         Status = "Deleted"
)

type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "Pending"
	PaymentCompleted         PaymentStatus = "Completed"
	PaymentPartiallyRefunded PaymentStatus = "PartiallyRefunded"
	PaymentRefunded          PaymentStatus = "Refunded"
	PaymentFailed            PaymentStatus = "Failed"
)

// Refundable reports whether money has been captured and not fully returned.
func (s PaymentStatus) Refundable() bool {
	return s == PaymentCompleted || s == PaymentPartiallyRefunded
}

// WindowMode tells which admission window accepted a request.
type WindowMode string

const (
	WindowNormal     WindowMode = "normal"
	WindowPrivileged WindowMode = "privileged"
)

const (
	ReasonDeadlinePassed      = "deadline passed"
	ReasonCutoffNotConfigured = "cutoff not configured"
)
