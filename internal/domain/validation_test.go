package domain

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/agromarket-storefront/pkg/validator"
)

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var ve *validator.ValidationError
	require.ErrorAs(t, err, &ve)
	return ve.Fields()
}

func TestDeliveryInfo_Valid(t *testing.T) {
	assert.NoError(t, validator.Validate(validDelivery(DeliveryStandard)))
}

func TestDeliveryInfo_FieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*DeliveryInfo)
		field  string
	}{
		{"bad email", func(d *DeliveryInfo) { d.Email = "abc" }, "email"},
		{"bad phone", func(d *DeliveryInfo) { d.Phone = "12" }, "phone"},
		{"four digit postal code", func(d *DeliveryInfo) { d.PostalCode = "2000" }, "postal_code"},
		{"letters in postal code", func(d *DeliveryInfo) { d.PostalCode = "2000A" }, "postal_code"},
		{"missing city", func(d *DeliveryInfo) { d.City = "" }, "city"},
		{"missing name", func(d *DeliveryInfo) { d.FullName = "" }, "full_name"},
		{"unknown method", func(d *DeliveryInfo) { d.Method = "drone" }, "delivery_method"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDelivery(DeliveryStandard)
			tt.mutate(&d)
			fields := fieldsOf(t, validator.Validate(d))
			assert.Contains(t, fields, tt.field)
		})
	}
}

func validReview() ReviewInput {
	return ReviewInput{
		ProductID: "p1",
		Rating:    4,
		Title:     "Fresh",
		Comment:   strings.Repeat("a", 10),
	}
}

func TestReviewInput_CommentBoundaries(t *testing.T) {
	r := validReview()
	assert.NoError(t, validator.Validate(r))

	r.Comment = strings.Repeat("a", 9)
	assert.Contains(t, fieldsOf(t, validator.Validate(r)), "comment")

	r.Comment = strings.Repeat("a", 1000)
	assert.NoError(t, validator.Validate(r))

	r.Comment = strings.Repeat("a", 1001)
	assert.Contains(t, fieldsOf(t, validator.Validate(r)), "comment")
}

func TestReviewInput_TitleCountsRunes(t *testing.T) {
	r := validReview()
	r.Title = "ඉතා හොඳ"
	assert.NoError(t, validator.Validate(r))

	r.Title = "abcd"
	assert.Contains(t, fieldsOf(t, validator.Validate(r)), "title")
}

func TestReviewInput_RatingRange(t *testing.T) {
	for _, rating := range []int{0, 6, -1} {
		r := validReview()
		r.Rating = rating
		assert.Contains(t, fieldsOf(t, validator.Validate(r)), "rating", rating)
	}
	for rating := 1; rating <= 5; rating++ {
		r := validReview()
		r.Rating = rating
		assert.NoError(t, validator.Validate(r), rating)
	}
}

func TestEligibility_Mode(t *testing.T) {
	assert.Equal(t, "", Eligibility{}.Mode())
	assert.Equal(t, "create", Eligibility{CanReview: true}.Mode())
	assert.Equal(t, "edit", Eligibility{CanReview: false, ExistingReview: &Review{ID: "r1"}}.Mode())
}

func TestWithdrawalRequest_Validation(t *testing.T) {
	req := WithdrawalRequest{
		Amount:        decimal.NewFromInt(100),
		BankName:      "People's Bank",
		AccountNumber: "0011223344",
		AccountHolder: "K. Silva",
	}
	assert.NoError(t, validator.Validate(req))

	req.Amount = decimal.Zero
	assert.Contains(t, fieldsOf(t, validator.Validate(req)), "amount")

	req.Amount = decimal.NewFromInt(-5)
	req.BankName = ""
	fields := fieldsOf(t, validator.Validate(req))
	assert.Contains(t, fields, "amount")
	assert.Contains(t, fields, "bank_name")
}

func TestWithdrawalRequest_CheckFunds(t *testing.T) {
	req := WithdrawalRequest{Amount: decimal.NewFromInt(600)}

	assert.Error(t, req.CheckFunds(decimal.NewFromInt(500)))
	assert.NoError(t, req.CheckFunds(decimal.NewFromInt(600)))
}

func TestBalance_ApplyWithdrawal(t *testing.T) {
	b := Balance{Available: decimal.NewFromInt(1000), Pending: decimal.NewFromInt(50)}

	got := b.ApplyWithdrawal(decimal.NewFromInt(300))

	assert.True(t, got.Available.Equal(decimal.NewFromInt(700)))
	assert.True(t, got.Pending.Equal(decimal.NewFromInt(350)))
	assert.True(t, b.Available.Equal(decimal.NewFromInt(1000)))
}

func TestTicketInput_Validation(t *testing.T) {
	in := TicketInput{Subject: "Late delivery", Description: "My order has not arrived", Category: "orders", Priority: "high"}
	assert.NoError(t, validator.Validate(in))

	in.Priority = "urgent"
	in.Subject = "Hey"
	fields := fieldsOf(t, validator.Validate(in))
	assert.Contains(t, fields, "priority")
	assert.Contains(t, fields, "subject")
}

func TestOrderStatusUpdate_Validation(t *testing.T) {
	assert.NoError(t, validator.Validate(OrderStatusUpdate{Status: OrderShipped}))
	assert.Error(t, validator.Validate(OrderStatusUpdate{Status: "lost"}))
}

func TestImageSlot_View(t *testing.T) {
	pending := ImageSlot{ID: "s1", State: Pending{LocalURL: "/api/v1/previews/b1", BlobID: "b1"}}
	uploaded := ImageSlot{ID: "s2", State: Uploaded{HostedURL: "https://cdn.example.com/x.jpg"}}

	assert.Equal(t, slotView{ID: "s1", Status: "pending", LocalURL: "/api/v1/previews/b1"}, pending.View())
	assert.Equal(t, slotView{ID: "s2", Status: "uploaded", HostedURL: "https://cdn.example.com/x.jpg"}, uploaded.View())
}
