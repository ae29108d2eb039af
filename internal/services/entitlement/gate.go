// Package entitlement decides whether a device may view a guide's content
package entitlement

// Decision is the outcome of an entitlement check
type Decision int

const (
	Deny Decision = iota
	Permit
)

func (d Decision) String() string {
	if d == Permit {
		return "permit"
	}
	return "deny"
}

// Ledger is the purchase record consulted by the gate
type Ledger interface {
	IsPurchased(id any) bool
}

// Gate derives entitlement from ledger membership alone. It does not look at
// the session: purchases belong to the device.
type Gate struct {
	ledger Ledger
}

// NewGate creates a gate over ledger
func NewGate(ledger Ledger) *Gate {
	return &Gate{ledger: ledger}
}

// Check permits id when it is in the ledger
func (g *Gate) Check(id any) Decision {
	if g.ledger != nil && g.ledger.IsPurchased(id) {
		return Permit
	}
	return Deny
}

// Allowed is Check(id) == Permit
func (g *Gate) Allowed(id any) bool {
	return g.Check(id) == Permit
}
