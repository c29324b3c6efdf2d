package xerrors

import "errors"
import "github.com/jackc/pgx/v5/pgconn"

func ParsePGErrorCode(err error) string {
	if pgErr, ok := err.(*pgconn.PgError); ok {
		return pgErr.Code // e.g. 23505 for unique_violation
	}
	return "unknown"
}

// IsUniqueViolation reports whether err is a Postgres unique_violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Generic
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternalServer = errors.New("internal server error")
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input provided")
)

// Wallet / ledger
var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidState        = errors.New("invalid transaction state")

	ErrDuplicateTransaction = errors.New("duplicate platform transaction")
)

// Withdrawals
var (
	ErrUnknownWithdrawalMethod = errors.New("unknown withdrawal method")
	ErrNoWithdrawalMethod      = errors.New("no withdrawal method configured")
)

// Payment methods
var (
	ErrPaymentMethodNotFound = errors.New("payment method not found")
)
