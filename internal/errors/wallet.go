package errors

var (
	ErrInvalidAmount = &DomainError{
		Code:    "INVALID_AMOUNT",
		Message: "amount must be a positive number",
	}
	ErrIncompleteCardNumber = &DomainError{
		Code:    "INCOMPLETE_CARD_NUMBER",
		Message: "card number must be exactly 10 digits",
	}
	ErrRecipientNotFound = &DomainError{
		Code:    "RECIPIENT_NOT_FOUND",
		Message: "no account matches this card number",
	}
	ErrInsufficientFunds = &DomainError{
		Code:    "INSUFFICIENT_FUNDS",
		Message: "insufficient funds",
	}
	ErrCommitFailure = &DomainError{
		Code:    "COMMIT_FAILURE",
		Message: "the operation could not be committed",
	}
	ErrConcurrentUpdate = &DomainError{
		Code:    "CONCURRENT_UPDATE",
		Message: "balance kept changing while the transfer was committed",
	}
	ErrAccountNotFound = &DomainError{
		Code:    "ACCOUNT_NOT_FOUND",
		Message: "account not found",
	}
	ErrIdempotencyKeyReused = &DomainError{
		Code:    "IDEMPOTENCY_KEY_REUSED",
		Message: "idempotency key already used for a different request",
	}
)

// Settlement errors
var (
	ErrSettlementNotFound = &DomainError{
		Code:    "SETTLEMENT_NOT_FOUND",
		Message: "settlement request not found",
	}
	ErrAlreadySettled = &DomainError{
		Code:    "ALREADY_SETTLED",
		Message: "settlement request has already been decided",
	}
	ErrInvalidRequest = &DomainError{
		Code:    "INVALID_REQUEST",
		Message: "invalid request",
	}
)

// Game errors
var (
	ErrUnknownGame = &DomainError{
		Code:    "UNKNOWN_GAME",
		Message: "unknown game",
	}
	ErrInvalidMetric = &DomainError{
		Code:    "INVALID_METRIC",
		Message: "metric must be a positive finite number",
	}
)
