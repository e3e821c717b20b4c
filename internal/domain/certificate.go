package domain

// Certificate is the processor's public signing certificate used to verify
// webhook notifications. Serial and PublicKey identify one credential and are
// always stored and replaced together, never one without the other.
type Certificate struct {
	Serial    string `json:"certSerial"`
	PublicKey string `json:"certPublic"`
}
