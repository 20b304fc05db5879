package domain

import (
	"errors"
	"fmt"
)

var (
	ErrStore                 = errors.New("store unavailable")
	ErrReminderNotFound      = errors.New("reminder not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrMalformedSelectedDays = errors.New("malformed selected_days")
	ErrInvalidTimeOfDay      = errors.New("time must be HH:MM (24h)")
	ErrInvalidFrequency      = errors.New("frequency must be daily, weekly or monthly")
	ErrNoDeviceTokens        = errors.New("no device tokens")
)

// DeliveryErrorKind separates push failures the caller must not retry
// from ones that may succeed later.
type DeliveryErrorKind string

const (
	DeliveryErrorInvalidToken DeliveryErrorKind = "invalid_token"
	DeliveryErrorTransient    DeliveryErrorKind = "transient"
)

type DeliveryError struct {
	Kind  DeliveryErrorKind
	Token string
	Err   error
}

func NewInvalidTokenError(token string, err error) *DeliveryError {
	return &DeliveryError{Kind: DeliveryErrorInvalidToken, Token: token, Err: err}
}

func NewTransientDeliveryError(token string, err error) *DeliveryError {
	return &DeliveryError{Kind: DeliveryErrorTransient, Token: token, Err: err}
}

func (e *DeliveryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("push delivery failed (%s)", e.Kind)
	}
	return fmt.Sprintf("push delivery failed (%s): %s", e.Kind, e.Err.Error())
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

func (e *DeliveryError) IsRetryable() bool {
	return e.Kind == DeliveryErrorTransient
}

// DeliveryKindOf returns the kind of a DeliveryError anywhere in err's chain.
// Errors that are not DeliveryErrors count as transient.
func DeliveryKindOf(err error) DeliveryErrorKind {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Kind
	}
	return DeliveryErrorTransient
}

// WrapStoreError marks err as a store connectivity/query failure.
func WrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}
