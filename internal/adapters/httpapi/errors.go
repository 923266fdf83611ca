package httpapi

import (
	"errors"

	"chatops-admin/internal/usecase/broadcast"
	"chatops-admin/internal/usecase/chats"
	"chatops-admin/internal/usecase/orders"
)

var validationErrors = []error{
	broadcast.ErrTextRequired,
	broadcast.ErrLimitRequired,
	broadcast.ErrRecipientsRequired,
	broadcast.ErrUnknownMode,
	chats.ErrEmptyText,
	chats.ErrEmptyTitle,
	orders.ErrInvalidStatus,
	orders.ErrInvalidOrder,
	orders.ErrInvalidBooking,
	orders.ErrInvalidRange,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
