package core

import (
	"errors"
	"fmt"
)

// Reason is the user-visible name of a failure.
type Reason string

const (
	ReasonInvalidInput          Reason = "InvalidInput"
	ReasonNotOwner              Reason = "NotOwner"
	ReasonNotApproved           Reason = "NotApproved"
	ReasonNotExists             Reason = "NotExists"
	ReasonAmountError           Reason = "AmountError"
	ReasonInvalidCall           Reason = "InvalidCall"
	ReasonAlreadyClosed         Reason = "AlreadyClosed"
	ReasonTransferError         Reason = "TransferError"
	ReasonForceValueNotAccepted Reason = "ForceValueNotAccepted"
)

// AuctionError is returned by every failing registry and engine operation.
// Two AuctionErrors match under errors.Is when their reasons are equal.
type AuctionError struct {
	Reason    Reason
	Op        string
	AuctionID uint64
	Err       error
}

func (e *AuctionError) Error() string {
	msg := string(e.Reason)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.AuctionID != 0 {
		msg = fmt.Sprintf("%s (auction %d)", msg, e.AuctionID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuctionError) Unwrap() error { return e.Err }

func (e *AuctionError) Is(target error) bool {
	var t *AuctionError
	if !errors.As(target, &t) {
		return false
	}
	return t.Reason == e.Reason
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidInput          = &AuctionError{Reason: ReasonInvalidInput}
	ErrNotOwner              = &AuctionError{Reason: ReasonNotOwner}
	ErrNotApproved           = &AuctionError{Reason: ReasonNotApproved}
	ErrNotExists             = &AuctionError{Reason: ReasonNotExists}
	ErrAmountError           = &AuctionError{Reason: ReasonAmountError}
	ErrInvalidCall           = &AuctionError{Reason: ReasonInvalidCall}
	ErrAlreadyClosed         = &AuctionError{Reason: ReasonAlreadyClosed}
	ErrTransferError         = &AuctionError{Reason: ReasonTransferError}
	ErrForceValueNotAccepted = &AuctionError{Reason: ReasonForceValueNotAccepted}

	// ErrNotFound is returned by Registry.Get for unknown ids. It carries the NotExists reason.
	ErrNotFound = ErrNotExists
)

func newError(reason Reason, op string, id uint64, err error) *AuctionError {
	return &AuctionError{Reason: reason, Op: op, AuctionID: id, Err: err}
}

// ReasonOf extracts the taxonomy reason from err. Errors that did not originate in this
// package report an empty reason.
func ReasonOf(err error) Reason {
	var ae *AuctionError
	if errors.As(err, &ae) {
		return ae.Reason
	}
	return ""
}
