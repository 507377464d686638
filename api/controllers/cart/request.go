package cart

// AddToCartRequest is the body of POST /api/v1/carts.
type AddToCartRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

type addToCartResponse struct {
	CartID        string `json:"cart_id"`
	ParticipantID string `json:"participant_id"`
	Status        string `json:"status"`
}

type removeFromCartResponse struct {
	Removed bool `json:"removed"`
}
