package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "sek"

// currencyPrecision lists currencies that do not use two decimals
var currencyPrecision = map[string]int32{
	"jpy": 0,
	"krw": 0,
	"isk": 0,
	"bhd": 3,
	"kwd": 3,
}

// GetCurrencyPrecision returns the number of minor-unit decimals for a currency
func GetCurrencyPrecision(currency string) int32 {
	if p, ok := currencyPrecision[strings.ToLower(currency)]; ok {
		return p
	}
	return 2
}

// RoundToCurrencyPrecision rounds half away from zero to the currency precision
func RoundToCurrencyPrecision(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.Round(GetCurrencyPrecision(currency))
}
