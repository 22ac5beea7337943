package service

import "errors"

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrParticipantNotFound  = errors.New("participant not found")
	ErrRegistrationNotPaid  = errors.New("registration is not paid")
	ErrWebhookRejected      = errors.New("webhook rejected")
)
