package orders

import (
	"fmt"
	"time"
)

// NewNumber nomor display "ORD-" + 6 digit terakhir unix millis.
// Bukan jaminan unik; kunci sebenarnya tetap order id (uuid).
func NewNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%06d", now.UnixMilli()%1_000_000)
}
