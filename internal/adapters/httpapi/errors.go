package httpapi

import (
	"errors"
	"net/http"

	"livebid-service/internal/domain/shared"
)

// MapError translates a domain error into an HTTP status and a
// human-readable message. Authorization failures map distinctly from
// business rejections so clients can prompt for login instead of showing a
// business message.
func MapError(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrAuctionNotFound),
		errors.Is(err, shared.ErrBidNotFound):
		return http.StatusNotFound, "not found"

	case errors.Is(err, shared.ErrUnauthenticated),
		errors.Is(err, shared.ErrInvalidToken):
		return http.StatusUnauthorized, "authentication required"

	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden, "admin privileges required"

	case errors.Is(err, shared.ErrBidAmountInvalid),
		errors.Is(err, shared.ErrInvalidRequest),
		errors.Is(err, shared.ErrInvalidTimeFormat),
		errors.Is(err, shared.ErrInvalidEndTime),
		errors.Is(err, shared.ErrInvalidStartingPrice):
		return http.StatusBadRequest, "invalid request"

	case errors.Is(err, shared.ErrBidAmountTooLow),
		errors.Is(err, shared.ErrAuctionClosed),
		errors.Is(err, shared.ErrAuctionNotStarted),
		errors.Is(err, shared.ErrAuctionAlreadyFinished):
		return http.StatusConflict, "bid rejected"

	case errors.Is(err, shared.ErrPriceConflict):
		return http.StatusConflict, "auction price changed, try again"

	default:
		return http.StatusInternalServerError, "internal error"
	}
}
