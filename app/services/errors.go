package services

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. Controllers map kinds to HTTP status codes and
// log them; clients only ever see a status and a short message.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindUnauthorized    Kind = "unauthorized"
	KindForbidden       Kind = "forbidden"
	KindConflict        Kind = "conflict"
	KindPaymentRequired Kind = "payment_required"
	KindUpstream        Kind = "upstream"
	KindUpstreamTimeout Kind = "upstream_timeout"
	KindServer          Kind = "server"
)

// Error is the error type returned by every service.
type Error struct {
	Kind Kind
	Op   string // service operation, e.g. "order.finalize"
	Msg  string // client-facing message for 4xx kinds
	Code string // machine-readable reason when one kind covers several causes
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel errors by kind, so errors.Is(err, ErrNotFound) holds
// for any not-found error, and by identity for the domain sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op == "" && t.Msg == "" && t.Code == "" && t.Err == nil {
		return e.Kind == t.Kind
	}
	return e == t
}

// Kind sentinels. Compare with errors.Is.
var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrUnauthorized    = &Error{Kind: KindUnauthorized}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrUpstream        = &Error{Kind: KindUpstream}
	ErrUpstreamTimeout = &Error{Kind: KindUpstreamTimeout}
	ErrServer          = &Error{Kind: KindServer}
)

// Codes sent alongside a 409 from PUT /cart/payee.
const (
	CodeAlreadyFinalized  = "already_finalized"
	CodeInsufficientStock = "insufficient_stock"
)

// Domain sentinels.
var (
	ErrUserNotFound        = &Error{Kind: KindNotFound, Op: "user", Msg: "Utilisateur introuvable"}
	ErrAlreadyFinalized    = &Error{Kind: KindConflict, Op: "order.finalize", Code: CodeAlreadyFinalized, Msg: "Commande déjà finalisée"}
	ErrInsufficientStock   = &Error{Kind: KindConflict, Op: "order.finalize", Code: CodeInsufficientStock, Msg: "Stock insuffisant"}
	ErrAccountNotConfirmed = &Error{Kind: KindForbidden, Op: "auth.login", Msg: "Compte non confirmé"}
	ErrBadCredentials      = &Error{Kind: KindUnauthorized, Op: "auth.login", Msg: "Identifiants invalides"}
	ErrPaymentNotSucceeded = &Error{Kind: KindPaymentRequired, Op: "order.finalize", Msg: "Paiement non confirmé"}
)

// StockShortage details which product could not be decremented. It wraps
// ErrInsufficientStock.
type StockShortage struct {
	ProductID uint
	Requested int
}

func (s *StockShortage) Error() string {
	return fmt.Sprintf("insufficient stock for product %d (requested %d)", s.ProductID, s.Requested)
}

func (s *StockShortage) Unwrap() error { return ErrInsufficientStock }

// ValidationErrors carries per-field messages from request validation. It
// unwraps to ErrValidation.
type ValidationErrors struct {
	Op     string
	Fields map[string]string
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("%s: %d invalid field(s)", v.Op, len(v.Fields))
}

func (v *ValidationErrors) Unwrap() error { return ErrValidation }

func newError(kind Kind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

func validation(op, msg string) error { return newError(KindValidation, op, msg, nil) }

func notFound(op, msg string) error { return newError(KindNotFound, op, msg, nil) }

func conflict(op, msg string) error { return newError(KindConflict, op, msg, nil) }

// internal wraps an unexpected failure (database, marshalling).
func internal(op string, err error) error { return newError(KindServer, op, "", err) }

// KindOf returns the kind of err, KindServer for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindServer
}

// MessageOf returns the client-facing message of err, if any.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return ""
}

// CodeOf returns the machine-readable code of err, if any.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
