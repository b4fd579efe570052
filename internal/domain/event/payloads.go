package event

import "github.com/shopspring/decimal"

func init() {
	// Amounts go on the wire as JSON numbers, matching the producers on the other side.
	decimal.MarshalJSONWithoutQuotes = true
}

type Type string

const (
	TypeProductCreated      Type = "ProductCreated"
	TypeTransferRequested   Type = "TransferRequested"
	TypeWithdrawalRequested Type = "WithdrawalRequested"
	TypeDepositRequested    Type = "DepositRequested"
)

// Payload is the typed body of an event.
type Payload interface {
	EventType() Type
	// CorrelationID is the entity the event is about; it is recorded in the dedup ledger.
	CorrelationID() string
}

type ProductCreated struct {
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

func (ProductCreated) EventType() Type         { return TypeProductCreated }
func (p ProductCreated) CorrelationID() string { return p.ProductID }

// MoneyMovement is the shared shape of transfer, withdrawal and deposit events.
type MoneyMovement struct {
	SenderID    string          `json:"senderId"`
	RecipientID string          `json:"recipientId"`
	Amount      decimal.Decimal `json:"amount"`
}

type TransferRequested struct{ MoneyMovement }

func (TransferRequested) EventType() Type         { return TypeTransferRequested }
func (t TransferRequested) CorrelationID() string { return t.SenderID }

type WithdrawalRequested struct{ MoneyMovement }

func (WithdrawalRequested) EventType() Type         { return TypeWithdrawalRequested }
func (w WithdrawalRequested) CorrelationID() string { return w.SenderID }

type DepositRequested struct{ MoneyMovement }

func (DepositRequested) EventType() Type         { return TypeDepositRequested }
func (d DepositRequested) CorrelationID() string { return d.RecipientID }
