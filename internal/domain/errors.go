package domain

import (
	"net/http"

	apperrors "github.com/spec-kit/blog-service/pkg/util/errorutil"
)

var (
	ErrDailyLimitExceeded = apperrors.NewDomainError("DAILY_LIMIT_EXCEEDED",
		"Daily post limit reached", http.StatusPaymentRequired, nil)
	ErrUserNotFound = apperrors.NewDomainError("USER_NOT_FOUND",
		"user not found", http.StatusNotFound, nil)
	ErrPostNotFound = apperrors.NewDomainError("POST_NOT_FOUND",
		"Blog not found", http.StatusNotFound, nil)
	ErrCommentNotFound = apperrors.NewDomainError("COMMENT_NOT_FOUND",
		"Comment not found", http.StatusNotFound, nil)
	ErrTransactionIDRequired = apperrors.NewDomainError("TRANSACTION_ID_REQUIRED",
		"Transaction ID is required", http.StatusBadRequest, nil)
	ErrInvalidReference = apperrors.NewDomainError("INVALID_REFERENCE",
		"Invalid or unconfirmed transaction. Please ensure you sent the correct amount to the correct address.",
		http.StatusBadRequest, nil)
	ErrAlreadySubscribed = apperrors.NewDomainError("ALREADY_SUBSCRIBED",
		"You already have an active subscription", http.StatusBadRequest, nil)
	ErrUsernameTaken = apperrors.NewDomainError("USERNAME_TAKEN",
		"Username already exists", http.StatusConflict, nil)
	ErrInvalidCredentials = apperrors.NewDomainError("INVALID_CREDENTIALS",
		"invalid credentials", http.StatusUnauthorized, nil)
	ErrInvalidSignature = apperrors.NewDomainError("INVALID_SIGNATURE",
		"Invalid webhook signature", http.StatusBadRequest, nil)
	ErrCardPaymentsDisabled = apperrors.NewDomainError("CARD_PAYMENTS_DISABLED",
		"Card payments are not configured", http.StatusServiceUnavailable, nil)
)
