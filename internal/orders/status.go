package orders

type Status string

const (
	StatusPending          Status = "pending"
	StatusApproved         Status = "approved"
	StatusProcessing       Status = "processing"
	StatusAccepted         Status = "accepted"
	StatusPacking          Status = "packing"
	StatusDonePacking      Status = "done_packing"
	StatusHandedToDelivery Status = "handed_to_delivery"
	StatusTransported      Status = "transported"
	StatusDelivered        Status = "delivered"
	StatusCancelled        Status = "cancelled"
)

// validNext: transisi umum di luar sub-flow packer (lihat engine/workflow.go).
// Terminal: transported, delivered, cancelled.
var validNext = map[Status]map[Status]bool{
	StatusPending:          {StatusApproved: true, StatusCancelled: true},
	StatusApproved:         {StatusProcessing: true, StatusAccepted: true, StatusCancelled: true},
	StatusProcessing:       {StatusDelivered: true, StatusCancelled: true},
	StatusAccepted:         {StatusPacking: true, StatusCancelled: true},
	StatusPacking:          {StatusDonePacking: true, StatusCancelled: true},
	StatusDonePacking:      {StatusHandedToDelivery: true, StatusCancelled: true},
	StatusHandedToDelivery: {StatusTransported: true, StatusCancelled: true},
	StatusTransported:      {},
	StatusDelivered:        {},
	StatusCancelled:        {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func IsTerminal(s Status) bool {
	return len(validNext[s]) == 0 && validNext[s] != nil
}

func ValidStatus(s Status) bool {
	_, ok := validNext[s]
	return ok
}

type PaymentType string

const (
	PaymentCash         PaymentType = "cash"
	PaymentCredit       PaymentType = "credit"
	PaymentBankTransfer PaymentType = "bank_transfer"
	PaymentMobileMoney  PaymentType = "mobile_money"
)

func ValidPaymentType(t PaymentType) bool {
	switch t {
	case PaymentCash, PaymentCredit, PaymentBankTransfer, PaymentMobileMoney:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusOverdue PaymentStatus = "overdue"
)

func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusPartial, PaymentStatusOverdue:
		return true
	}
	return false
}

type DeliveryMethod string

const (
	DeliveryCustomerPickup DeliveryMethod = "customer_pickup"
	DeliveryLocal          DeliveryMethod = "local_delivery"
	DeliveryCargo          DeliveryMethod = "cargo_delivery"
)

func ValidDeliveryMethod(m DeliveryMethod) bool {
	switch m {
	case DeliveryCustomerPickup, DeliveryLocal, DeliveryCargo:
		return true
	}
	return false
}
