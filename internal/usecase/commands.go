package usecase

import (
	"fmt"

	validation "github.com/jellydator/validation"
	"github.com/shopspring/decimal"

	"eventsaga/internal/failure"
)

type CreateProductCommand struct {
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

func (c *CreateProductCommand) Validate() error {
	return wrapValidation(validation.ValidateStruct(c,
		validation.Field(&c.Title,
			validation.Required.Error("title is required"),
			validation.Length(1, 255).Error("title must be between 1 and 255 characters"),
		),
		validation.Field(&c.Price, validation.By(positive("price"))),
		validation.Field(&c.Quantity, validation.Min(0).Error("quantity must not be negative")),
	))
}

type TransferCommand struct {
	SenderID    string          `json:"senderId"`
	RecipientID string          `json:"recipientId"`
	Amount      decimal.Decimal `json:"amount"`
}

func (c *TransferCommand) Validate() error {
	return wrapValidation(validation.ValidateStruct(c,
		validation.Field(&c.SenderID, validation.Required.Error("senderId is required")),
		validation.Field(&c.RecipientID,
			validation.Required.Error("recipientId is required"),
			validation.NotIn(c.SenderID).Error("recipientId must differ from senderId"),
		),
		validation.Field(&c.Amount, validation.By(positive("amount"))),
	))
}

func positive(field string) validation.RuleFunc {
	return func(value interface{}) error {
		d, ok := value.(decimal.Decimal)
		if !ok || !d.IsPositive() {
			return validation.NewError("validation_positive", field+" must be greater than zero")
		}
		return nil
	}
}

func wrapValidation(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s", failure.ErrInvalidInput, err.Error())
}
