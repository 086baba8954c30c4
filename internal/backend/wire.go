package backend

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/agromarket-storefront/internal/domain"
)

// The backend uses camelCase fields and Mongo style "_id" keys, sometimes
// "id". Related documents arrive either populated or as bare IDs.

type idField struct {
	MongoID string `json:"_id"`
	ID      string `json:"id"`
}

func (f idField) value() string {
	if f.MongoID != "" {
		return f.MongoID
	}
	return f.ID
}

// ref is a related document that may be an ID string or an object.
type ref struct {
	ID       string
	Name     string
	Role     string
	FarmName string
}

func (r *ref) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		return json.Unmarshal(b, &r.ID)
	}
	var obj struct {
		idField
		Name     string `json:"name"`
		Role     string `json:"role"`
		FarmName string `json:"farmName"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*r = ref{ID: obj.value(), Name: obj.Name, Role: obj.Role, FarmName: obj.FarmName}
	return nil
}

type userWire struct {
	idField
	Name            string `json:"name"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	Phone           string `json:"phone"`
	FarmName        string `json:"farmName"`
	IsEmailVerified bool   `json:"isEmailVerified"`
}

func (w userWire) toDomain() domain.User {
	return domain.User{
		ID:            w.value(),
		Name:          w.Name,
		Email:         w.Email,
		Role:          w.Role,
		Phone:         w.Phone,
		FarmName:      w.FarmName,
		EmailVerified: w.IsEmailVerified,
	}
}

type productWire struct {
	idField
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Category          ref             `json:"category"`
	Price             decimal.Decimal `json:"price"`
	Unit              string          `json:"unit"`
	AvailableQuantity int             `json:"availableQuantity"`
	Images            []string        `json:"images"`
	Farmer            ref             `json:"farmer"`
	Rating            float64         `json:"averageRating"`
	CreatedAt         time.Time       `json:"createdAt"`
}

func (w productWire) toDomain() domain.Product {
	category := w.Category.Name
	if category == "" {
		category = w.Category.ID
	}
	return domain.Product{
		ID:                w.value(),
		Name:              w.Name,
		Description:       w.Description,
		Category:          category,
		Price:             w.Price,
		Unit:              w.Unit,
		AvailableQuantity: w.AvailableQuantity,
		Images:            w.Images,
		FarmerID:          w.Farmer.ID,
		FarmerName:        w.Farmer.Name,
		Rating:            w.Rating,
		CreatedAt:         w.CreatedAt,
	}
}

type productPayload struct {
	Name              string          `json:"name"`
	Description       string          `json:"description,omitempty"`
	Category          string          `json:"category"`
	Price             decimal.Decimal `json:"price"`
	Unit              string          `json:"unit"`
	AvailableQuantity int             `json:"availableQuantity"`
	Images            []string        `json:"images,omitempty"`
}

func toProductPayload(in domain.ProductInput) productPayload {
	return productPayload{
		Name:              in.Name,
		Description:       in.Description,
		Category:          in.Category,
		Price:             in.Price,
		Unit:              in.Unit,
		AvailableQuantity: in.AvailableQuantity,
		Images:            in.Images,
	}
}

type cartLineWire struct {
	idField
	Product  productWire `json:"product"`
	Quantity int         `json:"quantity"`
	AddedAt  time.Time   `json:"addedAt"`
}

// cartWire accepts {"items": [...]} or a bare array of lines.
type cartWire struct {
	Items []cartLineWire `json:"items"`
}

func (c *cartWire) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		return json.Unmarshal(b, &c.Items)
	}
	type plain cartWire
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*c = cartWire(p)
	return nil
}

func (c cartWire) toDomain() []domain.CartLine {
	lines := make([]domain.CartLine, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, domain.CartLine{
			ID:       it.value(),
			Product:  it.Product.toDomain(),
			Quantity: it.Quantity,
			AddedAt:  it.AddedAt,
		})
	}
	return lines
}

type addressWire struct {
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	PostalCode   string `json:"postalCode"`
	Notes        string `json:"notes,omitempty"`
}

func toAddressWire(d domain.DeliveryInfo) addressWire {
	return addressWire{
		FullName:     d.FullName,
		Email:        d.Email,
		Phone:        d.Phone,
		AddressLine1: d.AddressLine1,
		AddressLine2: d.AddressLine2,
		City:         d.City,
		PostalCode:   d.PostalCode,
		Notes:        d.Notes,
	}
}

type orderItemWire struct {
	Product  ref             `json:"product"`
	Name     string          `json:"name"`
	Image    string          `json:"image"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type orderWire struct {
	idField
	Buyer           ref             `json:"buyer"`
	Items           []orderItemWire `json:"items"`
	Status          string          `json:"status"`
	PaymentMethod   string          `json:"paymentMethod"`
	PaymentStatus   string          `json:"paymentStatus"`
	DeliveryMethod  string          `json:"deliveryMethod"`
	ShippingAddress *addressWire    `json:"shippingAddress"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	ShippingFee     decimal.Decimal `json:"shippingFee"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func (w orderWire) toDomain() domain.Order {
	items := make([]domain.OrderItem, 0, len(w.Items))
	for _, it := range w.Items {
		name := it.Name
		if name == "" {
			name = it.Product.Name
		}
		items = append(items, domain.OrderItem{
			ProductID:   it.Product.ID,
			ProductName: name,
			Image:       it.Image,
			Quantity:    it.Quantity,
			Price:       it.Price,
		})
	}
	o := domain.Order{
		ID:             w.value(),
		BuyerID:        w.Buyer.ID,
		Items:          items,
		Status:         domain.OrderStatus(w.Status),
		PaymentMethod:  domain.PaymentMethod(w.PaymentMethod),
		PaymentStatus:  w.PaymentStatus,
		DeliveryMethod: domain.DeliveryMethod(w.DeliveryMethod),
		Subtotal:       w.Subtotal,
		ShippingFee:    w.ShippingFee,
		Total:          w.TotalAmount,
		CreatedAt:      w.CreatedAt,
	}
	if a := w.ShippingAddress; a != nil {
		o.Delivery = &domain.DeliveryInfo{
			FullName:     a.FullName,
			Email:        a.Email,
			Phone:        a.Phone,
			AddressLine1: a.AddressLine1,
			AddressLine2: a.AddressLine2,
			City:         a.City,
			PostalCode:   a.PostalCode,
			Method:       domain.DeliveryMethod(w.DeliveryMethod),
			Notes:        a.Notes,
		}
	}
	return o
}

type orderItemPayload struct {
	Product  string          `json:"product"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type orderPayload struct {
	Items           []orderItemPayload `json:"items"`
	ShippingAddress addressWire        `json:"shippingAddress"`
	DeliveryMethod  string             `json:"deliveryMethod"`
	PaymentMethod   string             `json:"paymentMethod"`
	Subtotal        decimal.Decimal    `json:"subtotal"`
	ShippingFee     decimal.Decimal    `json:"shippingFee"`
	TotalAmount     decimal.Decimal    `json:"totalAmount"`
}

func toOrderPayload(r domain.OrderRequest) orderPayload {
	items := make([]orderItemPayload, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, orderItemPayload{Product: it.ProductID, Quantity: it.Quantity, Price: it.Price})
	}
	return orderPayload{
		Items:           items,
		ShippingAddress: toAddressWire(r.Delivery),
		DeliveryMethod:  string(r.DeliveryMethod),
		PaymentMethod:   string(r.PaymentMethod),
		Subtotal:        r.Subtotal,
		ShippingFee:     r.ShippingFee,
		TotalAmount:     r.Total,
	}
}

type reviewWire struct {
	idField
	Product   ref       `json:"product"`
	User      ref       `json:"user"`
	Order     ref       `json:"order"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title"`
	Comment   string    `json:"comment"`
	Images    []string  `json:"images"`
	CreatedAt time.Time `json:"createdAt"`
}

func (w reviewWire) toDomain() domain.Review {
	return domain.Review{
		ID:        w.value(),
		ProductID: w.Product.ID,
		UserID:    w.User.ID,
		UserName:  w.User.Name,
		OrderID:   w.Order.ID,
		Rating:    w.Rating,
		Title:     w.Title,
		Comment:   w.Comment,
		Images:    w.Images,
		CreatedAt: w.CreatedAt,
	}
}

type reviewPayload struct {
	Product string   `json:"product,omitempty"`
	Order   string   `json:"order,omitempty"`
	Rating  int      `json:"rating"`
	Title   string   `json:"title"`
	Comment string   `json:"comment"`
	Images  []string `json:"images,omitempty"`
}

func toReviewPayload(in domain.ReviewInput) reviewPayload {
	return reviewPayload{
		Product: in.ProductID,
		Order:   in.OrderID,
		Rating:  in.Rating,
		Title:   in.Title,
		Comment: in.Comment,
		Images:  in.Images,
	}
}

type eligibilityWire struct {
	CanReview      bool        `json:"canReview"`
	ExistingReview *reviewWire `json:"existingReview"`
}

type cardWire struct {
	idField
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int    `json:"expMonth"`
	ExpYear  int    `json:"expYear"`
}

type transactionWire struct {
	idField
	Order     ref             `json:"order"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
}

type chargeWire struct {
	OrderID       string `json:"orderId"`
	TransactionID string `json:"transactionId"`
	Order         *struct {
		idField
	} `json:"order"`
}

type balanceWire struct {
	AvailableBalance decimal.Decimal `json:"availableBalance"`
	PendingBalance   decimal.Decimal `json:"pendingBalance"`
}

type withdrawalWire struct {
	idField
	Amount            decimal.Decimal `json:"amount"`
	BankName          string          `json:"bankName"`
	AccountNumber     string          `json:"accountNumber"`
	AccountHolderName string          `json:"accountHolderName"`
	Status            string          `json:"status"`
	CreatedAt         time.Time       `json:"createdAt"`
}

func (w withdrawalWire) toDomain() domain.Withdrawal {
	return domain.Withdrawal{
		ID:            w.value(),
		Amount:        w.Amount,
		BankName:      w.BankName,
		AccountNumber: w.AccountNumber,
		AccountHolder: w.AccountHolderName,
		Status:        w.Status,
		CreatedAt:     w.CreatedAt,
	}
}

type ticketWire struct {
	idField
	User        ref       `json:"user"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (w ticketWire) toDomain() domain.Ticket {
	return domain.Ticket{
		ID:          w.value(),
		UserID:      w.User.ID,
		Subject:     w.Subject,
		Description: w.Description,
		Category:    w.Category,
		Priority:    w.Priority,
		Status:      w.Status,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
}

type ticketMessageWire struct {
	idField
	Ticket    ref       `json:"ticket"`
	Sender    ref       `json:"sender"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

func (w ticketMessageWire) toDomain(ticketID string) domain.TicketMessage {
	if w.Ticket.ID != "" {
		ticketID = w.Ticket.ID
	}
	return domain.TicketMessage{
		ID:         w.value(),
		TicketID:   ticketID,
		SenderID:   w.Sender.ID,
		SenderName: w.Sender.Name,
		SenderRole: w.Sender.Role,
		Message:    w.Message,
		CreatedAt:  w.CreatedAt,
	}
}

type uploadWire struct {
	URLs   []string `json:"urls"`
	Images []struct {
		URL      string `json:"url"`
		PublicID string `json:"publicId"`
	} `json:"images"`
}

func (w uploadWire) toDomain() []domain.UploadedImage {
	out := make([]domain.UploadedImage, 0, len(w.URLs)+len(w.Images))
	for _, img := range w.Images {
		out = append(out, domain.UploadedImage{URL: img.URL, PublicID: img.PublicID})
	}
	if len(out) == 0 {
		for _, u := range w.URLs {
			out = append(out, domain.UploadedImage{URL: u})
		}
	}
	return out
}

func mapSlice[W any, D any](in []W, fn func(W) D) []D {
	out := make([]D, 0, len(in))
	for _, w := range in {
		out = append(out, fn(w))
	}
	return out
}
