package request

// CreateChargeRequest is the checkout payload. Prices are in major currency
// units as shown to the customer; the owner user comes from the request
// context, never from the body.
type CreateChargeRequest struct {
	SessionID      string              `json:"session_id" validate:"omitempty,max=128"`
	CustomerName   string              `json:"customer_name" validate:"required,max=255"`
	CustomerEmail  string              `json:"customer_email" validate:"required,email,max=255"`
	CustomerPhone  string              `json:"customer_phone" validate:"omitempty,max=64"`
	Items          []ChargeItemRequest `json:"items" validate:"required,min=1,dive"`
	Subtotal       float64             `json:"subtotal" validate:"gte=0"`
	Discount       float64             `json:"discount" validate:"gte=0"`
	Total          float64             `json:"total" validate:"gt=0"`
	Currency       string              `json:"currency" validate:"omitempty,iso4217"`
	AppliedOfferID *string             `json:"applied_offer_id,omitempty" validate:"omitempty,max=64"`
	Notes          string              `json:"notes" validate:"omitempty,max=1000"`
}

type ChargeItemRequest struct {
	TourID         string  `json:"tour_id" validate:"required,max=64"`
	TourName       string  `json:"tour_name" validate:"omitempty,max=255"`
	TravelDate     string  `json:"travel_date" validate:"required,datetime=2006-01-02"`
	Adults         int     `json:"adults" validate:"gte=0,max=50"`
	Children       int     `json:"children" validate:"gte=0,max=50"`
	Infants        int     `json:"infants" validate:"gte=0,max=50"`
	UnitPrice      float64 `json:"unit_price" validate:"gte=0"`
	TotalPrice     float64 `json:"total_price" validate:"gt=0"`
	AppliedOfferID *string `json:"applied_offer_id,omitempty" validate:"omitempty,max=64"`
	Notes          string  `json:"notes" validate:"omitempty,max=1000"`
}
