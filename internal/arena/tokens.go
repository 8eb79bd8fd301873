package arena

// TokenStatus is the outcome of an attack-token check.
type TokenStatus int

const (
	// TokensOK - tokens remain, proceed.
	TokensOK TokenStatus = iota
	// TokensRefilled - the free refill was consumed; the roster resets to
	// the top, so tracked scroll position must be reset too.
	TokensRefilled
	// TokensExhausted - no tokens and no free refill; the run must end.
	TokensExhausted
)

func (s TokenStatus) String() string {
	switch s {
	case TokensOK:
		return "ok"
	case TokensRefilled:
		return "refilled"
	case TokensExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}
