package database

import "errors"

var (
	ErrLoadNotFound           = errors.New("load not found")
	ErrQuoteNotFound          = errors.New("quote not found")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrDuplicateQuote         = errors.New("transporter already has an active quote on this load")
	ErrQuoteNotPending        = errors.New("quote is no longer pending")
	ErrLoadNotQuotable        = errors.New("load no longer accepts quotes")
	ErrLoadNotQuoted          = errors.New("load is not awaiting quote acceptance")
	ErrPhaseAlreadySettled    = errors.New("payment phase already settled for this load")
)
