package enums

import "fmt"

// CartStatus tracks the lifecycle of a draft order cart.
type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusCompleted CartStatus = "completed"
	CartStatusAbandoned CartStatus = "abandoned"
)

func (s CartStatus) String() string {
	return string(s)
}

func (s CartStatus) IsValid() bool {
	switch s {
	case CartStatusActive, CartStatusCompleted, CartStatusAbandoned:
		return true
	}
	return false
}

// IsTerminal reports whether the cart can no longer be mutated.
func (s CartStatus) IsTerminal() bool {
	return s == CartStatusCompleted || s == CartStatusAbandoned
}

func ParseCartStatus(value string) (CartStatus, error) {
	status := CartStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid cart status %q", value)
	}
	return status, nil
}
