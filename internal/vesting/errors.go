package vesting

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation covers malformed input: zero address, zero amount, empty eligibility list.
	ErrValidation = errors.New("validation error")

	ErrNotEligible                 = errors.New("address is not eligible")
	ErrAlreadyEligible             = errors.New("address is already eligible")
	ErrNoActiveSchedule            = errors.New("no active vesting schedule")
	ErrExceedsVestedAmount         = errors.New("amount exceeds claimable vested amount")
	ErrInsufficientContractBalance = errors.New("insufficient contract balance")
	ErrInsufficientExternalBalance = errors.New("insufficient token balance")
	ErrInsufficientAllowance       = errors.New("insufficient allowance")
	ErrReentrancy                  = errors.New("reentrant call")
	ErrTransferFailed              = errors.New("token transfer failed")
	ErrUnauthorized                = errors.New("caller is not the owner")
	ErrUnknownToken                = fmt.Errorf("%w: unknown token", ErrValidation)
	ErrExceedsDeposit              = fmt.Errorf("%w: amount exceeds deposited balance", ErrValidation)
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
