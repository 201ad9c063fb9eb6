package circulation

import "github.com/aoideee/treekings-library/internal/data"

var (
	ErrCartFull          = &data.Error{Kind: data.KindValidation, Message: "cart is full"}
	ErrAlreadyInCart     = &data.Error{Kind: data.KindValidation, Message: "book is already in the cart"}
	ErrNotInCart         = &data.Error{Kind: data.KindValidation, Message: "book is not in the cart"}
	ErrCartEmpty         = &data.Error{Kind: data.KindValidation, Message: "cart is empty"}
	ErrInvalidState      = &data.Error{Kind: data.KindValidation, Message: "not allowed in the current cart state"}
	ErrNoLongerAvailable = &data.Error{Kind: data.KindAvailability, Message: "some books are no longer available"}
)
