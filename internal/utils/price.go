package utils

import (
	"fmt"
	"math"
	"strings"
)

var currencySymbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
}

// FormatPrice formats amount with Indian digit grouping and two decimals,
// e.g. 123456.5 INR becomes "₹1,23,456.50".
func FormatPrice(amount float64, currency string) string {
	if currency == "" {
		currency = "INR"
	}
	symbol, ok := currencySymbols[strings.ToUpper(currency)]
	if !ok {
		symbol = strings.ToUpper(currency) + " "
	}

	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	paise := int64(math.Round(amount * 100))
	whole := fmt.Sprintf("%d", paise/100)
	return fmt.Sprintf("%s%s%s.%02d", sign, symbol, groupIndian(whole), paise%100)
}

// groupIndian inserts separators after the last three digits and then every two.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]

	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}

// CalculateDiscount returns the whole-percent discount of salePrice from mrp.
func CalculateDiscount(mrp, salePrice float64) int {
	if mrp > 0 && salePrice > 0 && mrp > salePrice {
		return int(math.Round((mrp - salePrice) / mrp * 100))
	}
	return 0
}

// ToMinorUnits converts a major-unit amount to minor units (paise, cents).
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
