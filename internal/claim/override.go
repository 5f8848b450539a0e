package claim

import (
	"fmt"

	"github.com/gyeh/claimforge/internal/model"
)

// Override sets claim fields after derivation.
type Override func(*model.Claim) error

// Set wraps a plain field assignment as an Override.
func Set(fn func(*model.Claim)) Override {
	return func(c *model.Claim) error {
		fn(c)
		return nil
	}
}

// WithServiceLines replaces the service lines and recomputes the total.
func WithServiceLines(lines ...model.ServiceLine) Override {
	return func(c *model.Claim) error {
		if err := c.SetServiceLines(lines); err != nil {
			return err
		}
		c.TotalCharge = TotalCharge(c.ServiceLines)
		return nil
	}
}

// WithTotalCharge sets item 28 as given. The validator warns when it
// disagrees with the lines.
func WithTotalCharge(total float64) Override {
	return func(c *model.Claim) error {
		if total < 0 {
			return fmt.Errorf("total charge %.2f is negative", total)
		}
		c.TotalCharge = total
		return nil
	}
}

// WithAmountPaid sets item 29.
func WithAmountPaid(paid float64) Override {
	return func(c *model.Claim) error {
		if paid < 0 {
			return fmt.Errorf("amount paid %.2f is negative", paid)
		}
		c.AmountPaid = &paid
		return nil
	}
}

// WithBillingProviderNPI sets item 33a.
func WithBillingProviderNPI(npi string) Override {
	return Set(func(c *model.Claim) { c.BillingProviderNPI = npi })
}

// WithDiagnosis places code in the slot for letter.
func WithDiagnosis(letter, code string) Override {
	return func(c *model.Claim) error {
		if !c.SetDiagnosis(letter, code) {
			return fmt.Errorf("diagnosis letter %q is outside A-L", letter)
		}
		return nil
	}
}

// WithPatientAccountNumber sets item 26.
func WithPatientAccountNumber(acct string) Override {
	return Set(func(c *model.Claim) { c.PatientAccountNumber = acct })
}

// WithPriorAuthorization sets item 23.
func WithPriorAuthorization(num string) Override {
	return Set(func(c *model.Claim) { c.PriorAuthorizationNumber = num })
}
