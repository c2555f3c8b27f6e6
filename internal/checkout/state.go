package checkout

// State is a step of the checkout state machine.
type State string

const (
	StateCollectingAddress State = "collecting_address"
	StateSubmittingOrder   State = "submitting_order"
	StateAwaitingPayment   State = "awaiting_payment"
	StateVerifyingPayment  State = "verifying_payment"
	StateCompleted         State = "completed"
	StateError             State = "error"
)

// allowed lists the legal transitions. StateError is reachable from every
// in-flight step and always resolves to a resting state.
var allowed = map[State][]State{
	StateCollectingAddress: {StateSubmittingOrder, StateError},
	StateSubmittingOrder:   {StateAwaitingPayment, StateCompleted, StateError},
	StateAwaitingPayment:   {StateVerifyingPayment, StateAwaitingPayment, StateError},
	StateVerifyingPayment:  {StateCompleted, StateError},
	StateError:             {StateCollectingAddress, StateAwaitingPayment},
	StateCompleted:         {},
}

func canTransition(from, to State) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition is broadcast to subscribers on every state change.
type Transition struct {
	From State
	To   State
	Err  error
}
