package checkout

import (
	"strings"

	"github.com/example/quickcommerce/internal/apperr"
	"github.com/example/quickcommerce/internal/models"
)

// ValidateAddress checks the fields an order cannot ship without.
func ValidateAddress(a *models.Address) error {
	if a == nil {
		return apperr.Validation("Please select a delivery address.", nil)
	}

	fields := []struct {
		name  string
		label string
		value string
	}{
		{"street", "street", a.Street},
		{"city", "city", a.City},
		{"state", "state", a.State},
		{"postalCode", "postal code", a.PostalCode},
		{"phone", "phone", a.Phone},
	}

	details := map[string]string{}
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			details[f.name] = "required"
			missing = append(missing, f.label)
		}
	}
	if len(missing) > 0 {
		return apperr.Validation("Please complete the delivery address: "+strings.Join(missing, ", ")+".", details)
	}
	return nil
}

func validatePaymentMethod(method string) error {
	switch method {
	case models.PaymentMethodCOD, models.PaymentMethodRazorpay:
		return nil
	}
	return apperr.Validation("Please choose a payment method.", map[string]string{"paymentMethod": "must be cod or razorpay"})
}
