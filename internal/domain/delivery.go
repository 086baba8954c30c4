package domain

// DeliveryInfo is the address and contact block of an order.
type DeliveryInfo struct {
	FullName     string         `json:"full_name" validate:"required,max=100"`
	Email        string         `json:"email" validate:"required,email"`
	Phone        string         `json:"phone" validate:"required,phone"`
	AddressLine1 string         `json:"address_line1" validate:"required,max=200"`
	AddressLine2 string         `json:"address_line2" validate:"max=200"`
	City         string         `json:"city" validate:"required,max=100"`
	PostalCode   string         `json:"postal_code" validate:"required,postalcode"`
	Method       DeliveryMethod `json:"delivery_method" validate:"required,oneof=standard express pickup"`
	Notes        string         `json:"notes,omitempty" validate:"max=500"`
}
