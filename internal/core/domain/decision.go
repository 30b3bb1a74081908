package domain

// DecisionKind classifies the outcome of a token exchange.
type DecisionKind int

const (
	// DecisionPassThrough lets the request through without an identity;
	// the outbound Authorization header is explicitly emptied.
	DecisionPassThrough DecisionKind = iota
	// DecisionReject denies the request with 401.
	DecisionReject
	// DecisionExchanged replaces the Authorization header with a freshly
	// minted internal token.
	DecisionExchanged
)

// ExchangeDecision is the identity decision produced for one request.
type ExchangeDecision struct {
	Kind   DecisionKind
	Reason string
	Token  string
}

// PassThrough builds a pass-through decision.
func PassThrough() ExchangeDecision {
	return ExchangeDecision{Kind: DecisionPassThrough}
}

// Reject builds a rejection decision with the given client-facing reason.
func Reject(reason string) ExchangeDecision {
	return ExchangeDecision{Kind: DecisionReject, Reason: reason}
}

// Exchanged builds a decision carrying the minted internal token.
func Exchanged(token string) ExchangeDecision {
	return ExchangeDecision{Kind: DecisionExchanged, Token: token}
}
