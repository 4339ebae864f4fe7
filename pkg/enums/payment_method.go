package enums

import (
	"fmt"
	"strings"
)

// PaymentMethod is how the customer settles an order. Neither method is
// captured online; both are reconciled by staff.
type PaymentMethod string

const (
	// PaymentMethodCash is paid to the driver on delivery.
	PaymentMethodCash PaymentMethod = "cash"
	// PaymentMethodBank is a transfer the customer makes after ordering.
	PaymentMethodBank PaymentMethod = "bank"
)

var paymentMethodLabels = map[PaymentMethod]string{
	PaymentMethodCash: "الدفع عند الاستلام",
	PaymentMethodBank: "تحويل بنكي",
}

func (p PaymentMethod) String() string {
	return string(p)
}

func (p PaymentMethod) IsValid() bool {
	_, ok := paymentMethodLabels[p]
	return ok
}

// Label is the Arabic text shown on the order and invoice. Unknown values fall
// back to cash on delivery, which is what legacy rows without a method meant.
func (p PaymentMethod) Label() string {
	if label, ok := paymentMethodLabels[p]; ok {
		return label
	}
	return paymentMethodLabels[PaymentMethodCash]
}

// ParsePaymentMethod accepts the form value in any case and surrounding space.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	p := PaymentMethod(strings.ToLower(strings.TrimSpace(value)))
	if !p.IsValid() {
		return "", fmt.Errorf("invalid payment method %q", value)
	}
	return p, nil
}
