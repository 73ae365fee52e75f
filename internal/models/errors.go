package models

import "errors"

var (
	ErrEmptyBody             = errors.New("message body is required")
	ErrBodyTooLong           = errors.New("message body must be at most 1000 characters")
	ErrUnknownMessageType    = errors.New("message type must be text or offer")
	ErrOfferFieldsRequired   = errors.New("offer amount is required for offers")
	ErrOfferFieldsNotAllowed = errors.New("offer amount is only allowed on offers")
	ErrNegativeOffer         = errors.New("offer amount must not be negative")
	ErrOfferAmountOutOfRange = errors.New("offer amount must be at most 9999999999.99 with no more than two decimals")
	ErrUnknownOfferStatus    = errors.New("unknown offer status")
)
