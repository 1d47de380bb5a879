// Package types contains shared type definitions used across multiple packages
package types

// Network identifies which deployment of the chain's analytics stack the
// dashboard talks to.
type Network string

// Supported networks
const (
	NetworkMainnet Network = "mainnet"
	NetworkDevnet  Network = "devnet"
	NetworkTestnet Network = "testnet"
)

// analyticsEndpoints maps each network to its default analytics API base URL.
var analyticsEndpoints = map[Network]string{
	NetworkMainnet: "https://api.stakinginsights.io",
	NetworkDevnet:  "https://devnet-api.stakinginsights.io",
	NetworkTestnet: "https://testnet-api.stakinginsights.io",
}

// APIBaseURL returns the default analytics endpoint for the network,
// falling back to mainnet for unknown values.
func (n Network) APIBaseURL() string {
	if url, ok := analyticsEndpoints[n]; ok {
		return url
	}
	return analyticsEndpoints[NetworkMainnet]
}

// Valid reports whether n names a known network.
func (n Network) Valid() bool {
	_, ok := analyticsEndpoints[n]
	return ok
}
