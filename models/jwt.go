package models

// MergeJWT is the claim set accepted by the /merge endpoint.
type MergeJWT struct {
	Issuer    string    `json:"iss,omitempty"`
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  int64     `json:"iat,omitempty"`
	ExpiresAt int64     `json:"exp,omitempty"`
	Merge     MergeSpec `json:"merge"`
}
