package datagen

import (
	"strings"
	"time"
)

// CardType describes a card network's number format.
type CardType struct {
	Name      string
	Prefix    string
	Length    int
	CVVLength int
}

// CardTypes are the networks fixtures issue cards for.
var CardTypes = []CardType{
	{Name: "Visa", Prefix: "4", Length: 16, CVVLength: 3},
	{Name: "Mastercard", Prefix: "51", Length: 16, CVVLength: 3},
	{Name: "Discover", Prefix: "6011", Length: 16, CVVLength: 3},
	{Name: "American Express", Prefix: "34", Length: 15, CVVLength: 4},
}

// LuhnCheckDigit returns the digit that makes payload followed by it pass
// the Luhn check. payload must contain only digits.
func LuhnCheckDigit(payload string) byte {
	sum := 0
	double := true
	for i := len(payload) - 1; i >= 0; i-- {
		d := int(payload[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return byte('0' + (10-sum%10)%10)
}

// LuhnValid reports whether number passes the Luhn check.
func LuhnValid(number string) bool {
	if len(number) < 2 || strings.Trim(number, "0123456789") != "" {
		return false
	}
	return LuhnCheckDigit(number[:len(number)-1]) == number[len(number)-1]
}

// CardNumber generates a Luhn-valid number for the card type.
func (f *Faker) CardNumber(ct CardType) string {
	payload := ct.Prefix + f.Digits(ct.Length-len(ct.Prefix)-1)
	return payload + string(LuhnCheckDigit(payload))
}

// CVV generates a security code of the card type's length.
func (f *Faker) CVV(ct CardType) string {
	cvv := f.Digits(ct.CVVLength)
	// keep a leading digit so the value survives integer columns
	if cvv[0] == '0' {
		cvv = "1" + cvv[1:]
	}
	return cvv
}

// ExpirationDate returns the first day of a random month between
// January 2024 and December 2030.
func (f *Faker) ExpirationDate() time.Time {
	return time.Date(f.Int(2024, 2030), time.Month(f.Int(1, 12)), 1, 0, 0, 0, 0, time.UTC)
}
