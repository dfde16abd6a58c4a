package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateInvoiceNumber builds a human-facing invoice number, e.g.
// INV-20260901-3F2A9C1B. The suffix is random rather than sequential so
// number generation needs no coordination between concurrent creators.
func GenerateInvoiceNumber(at time.Time) string {
	return generateNumber("INV", at)
}

// GeneratePaymentNumber builds a unique payment reference number
func GeneratePaymentNumber(at time.Time) string {
	return generateNumber("PAY", at)
}

func generateNumber(prefix string, at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", prefix, at.Format("20060102"), suffix)
}
