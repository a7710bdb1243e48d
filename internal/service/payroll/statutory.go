package payroll

import (
	"fmt"
	"strings"

	"github.com/cmlabs-hris/payslip-engine/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DefaultStatutoryRates returns the Ghana SSNIT rates and the monthly PAYE table.
func DefaultStatutoryRates() payroll.StatutoryRates {
	brackets, _ := ParseBrackets("490:0,110:5,130:10,3166.67:17.5,16000:25,30520:30,:35")
	return payroll.StatutoryRates{
		SSNITEmployeeRate: decimal.RequireFromString("5.5"),
		SSNITEmployerRate: decimal.NewFromInt(13),
		Tier1Rate:         decimal.RequireFromString("13.5"),
		Tier2Rate:         decimal.NewFromInt(5),
		PAYEBrackets:      brackets,
	}
}

// ParseBrackets reads a "width:rate,width:rate,...,:rate" table. An empty
// width marks the open-ended top band and must come last.
func ParseBrackets(spec string) ([]payroll.Bracket, error) {
	var brackets []payroll.Bracket
	parts := strings.Split(spec, ",")
	for i, part := range parts {
		kv := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("bracket %d: expected width:rate, got %q", i, part)
		}

		rate, err := decimal.NewFromString(strings.TrimSpace(kv[1]))
		if err != nil {
			return nil, fmt.Errorf("bracket %d: invalid rate: %w", i, err)
		}
		if rate.IsNegative() {
			return nil, fmt.Errorf("bracket %d: rate must be non-negative", i)
		}

		var width *decimal.Decimal
		if w := strings.TrimSpace(kv[0]); w != "" {
			parsed, err := decimal.NewFromString(w)
			if err != nil {
				return nil, fmt.Errorf("bracket %d: invalid width: %w", i, err)
			}
			if !parsed.IsPositive() {
				return nil, fmt.Errorf("bracket %d: width must be positive", i)
			}
			width = &parsed
		} else if i != len(parts)-1 {
			return nil, fmt.Errorf("bracket %d: only the last bracket may be open-ended", i)
		}

		brackets = append(brackets, payroll.Bracket{Width: width, Rate: rate})
	}
	return brackets, nil
}

// PAYE applies the progressive table to the monthly income. Income above a
// table without an open-ended band is taxed at the last rate.
func PAYE(income decimal.Decimal, brackets []payroll.Bracket) decimal.Decimal {
	tax := decimal.Zero
	remaining := income
	for i, b := range brackets {
		if !remaining.IsPositive() {
			break
		}
		band := remaining
		if b.Width != nil && band.GreaterThan(*b.Width) && i != len(brackets)-1 {
			band = *b.Width
		}
		tax = tax.Add(band.Mul(b.Rate).Div(hundred))
		remaining = remaining.Sub(band)
	}
	return tax
}

func percentOf(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred)
}
