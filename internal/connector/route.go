package connector

// DefaultRoute is the page on which a persisted wallet is silently reconnected.
const DefaultRoute = "/cross-chain"

// OnRoute returns a reconnect predicate that holds while current reports route.
func OnRoute(route string, current func() string) func() bool {
	return func() bool {
		return current != nil && current() == route
	}
}
