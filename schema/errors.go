package schema

import (
	"errors"
)

var (
	ErrNotExist = errors.New("not_exist_record")
	ErrNotFound = errors.New("not_found")

	ErrNoActiveAccount  = errors.New("no_active_account")
	ErrNoChainProvider  = errors.New("no_chain_provider")
	ErrNoActiveKey      = errors.New("no_active_permission_key")
	ErrBalanceTooLow    = errors.New("insufficient_balance")
	ErrBadQuantity      = errors.New("bad_quantity")
	ErrBadRequestURI    = errors.New("bad_request_uri")
	ErrChainMismatch    = errors.New("no_account_for_chain")
	ErrNoRequest        = errors.New("no_request_in_flight")
	ErrEmptyResolution  = errors.New("empty_action_resolution")
	ErrAuthFailed       = errors.New("device_auth_failed")
	ErrSessionNotExist  = errors.New("session_not_exist")
	ErrSchedulerClosed  = errors.New("scheduler_closed")
	ErrKeyAccountsEmpty = errors.New("no_accounts_for_key")
)
