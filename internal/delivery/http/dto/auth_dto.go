package dto

// SessionRequest opens a session for a wallet address
type SessionRequest struct {
	WalletAddress string `json:"wallet_address"`
}

// SessionResponse represents the session response
type SessionResponse struct {
	Token         string `json:"token"`
	WalletAddress string `json:"wallet_address"`
	ExpiresAt     string `json:"expires_at"`
}
