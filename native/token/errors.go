package token

import "errors"

var (
	ErrInvalidRecipient      = errors.New("token: invalid recipient")
	ErrInvalidSpender        = errors.New("token: invalid spender")
	ErrInsufficientBalance   = errors.New("token: insufficient balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrAllowanceUnderflow    = errors.New("token: allowance underflow")
	ErrBlacklisted           = errors.New("token: account blacklisted")
	ErrTradingNotStarted     = errors.New("token: trading not started")
	ErrUnauthorized          = errors.New("token: unauthorized")
	ErrFeeTooHigh            = errors.New("token: fee exceeds ceiling")
	ErrInvariant             = errors.New("token: invariant violation")
	ErrArithmetic            = errors.New("token: arithmetic fault")
	ErrUnknownToken          = errors.New("token: foreign token not registered")
	ErrSweepFailed           = errors.New("token: foreign transfer failed")
)
