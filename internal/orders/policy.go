package orders

import "github.com/abhiruchieats/storefront-api/pkg/enums"

// transitionPolicy decides whether an order may move between two statuses.
type transitionPolicy func(from, to enums.OrderStatus) bool

// permissiveTransitions allows any valid status to follow any other.
func permissiveTransitions(from, to enums.OrderStatus) bool {
	return to.IsValid()
}

// strictTransitions enforces pending -> confirmed -> preparing -> ready ->
// delivered, with cancellation from any non-terminal status.
func strictTransitions(from, to enums.OrderStatus) bool {
	return from.CanTransitionTo(to)
}

func policyFor(strict bool) transitionPolicy {
	if strict {
		return strictTransitions
	}
	return permissiveTransitions
}
