package contracts

import "restaurant-fulfillment/internal/shared/apperr"

// FromError converts a classified error into a failure reply envelope.
func FromError(err error) Response {
	return Fail(apperr.HTTPStatus(err), err.Error())
}
