package auth

// Scopes granted by the API.
const (
	ScopeLedgerSelf    = "ledger:self"
	ScopeLedgerTrainer = "ledger:trainer"
)

// ScopesFor returns the scopes granted to a profile.
func ScopesFor(isTrainer bool) []string {
	if isTrainer {
		return []string{ScopeLedgerSelf, ScopeLedgerTrainer}
	}
	return []string{ScopeLedgerSelf}
}
