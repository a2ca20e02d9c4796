package credit

import (
	"errors"
	"time"
)

var ErrCustomerNotFound = errors.New("customer not found")

type TxType string

const (
	TxInvoice TxType = "invoice"
	TxPayment TxType = "payment"
	TxRefund  TxType = "refund"
)

// Transaction satu entri append-only di log kredit pelanggan.
// Koreksi lewat transaksi pembalik (refund), bukan edit.
type Transaction struct {
	ID          string    `json:"id"`
	Type        TxType    `json:"type"`
	AmountCents int64     `json:"amount_cents"`
	Reference   string    `json:"reference"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Account view turunan: creditUsed = Σ invoice − Σ payment − Σ refund.
type Account struct {
	CustomerID       string `json:"customer_id"`
	CreditLimitCents int64  `json:"credit_limit_cents"`
	CreditUsedCents  int64  `json:"credit_used_cents"`
}

// signedAmount kontribusi satu transaksi ke creditUsed.
func signedAmount(t Transaction) int64 {
	if t.Type == TxInvoice {
		return t.AmountCents
	}
	return -t.AmountCents
}
