package domain

// Upstream source names, as reported by the status endpoint.
const (
	SourceGitHubEips   = "GitHub (EIPs)"
	SourceGitHubEvents = "GitHub (EIP events)"
	SourceEthResearch  = "ethresear.ch"
	SourceEthereumRPC  = "Ethereum RPC"
)
