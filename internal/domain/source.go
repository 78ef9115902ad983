package domain

// SourceID identifies one subgraph deployment, e.g. "uniswap-v3-ethereum".
// The same value is reported as the "dex" column of canonical swaps.
type SourceID string

// String returns the string representation of SourceID.
func (s SourceID) String() string {
	return string(s)
}

// SourceDescriptor is an immutable registry entry: a source and the endpoint
// its GraphQL schema is served from.
type SourceDescriptor struct {
	ID       SourceID
	Endpoint string
}

// ConcurrencyMode selects how loading and fetching fan out across sources.
type ConcurrencyMode int

const (
	// Parallel runs sources concurrently (bounded for fetches).
	Parallel ConcurrencyMode = iota
	// Sequential runs one source at a time.
	Sequential
)

// String returns the string representation of ConcurrencyMode.
func (m ConcurrencyMode) String() string {
	if m == Sequential {
		return "sequential"
	}
	return "parallel"
}
