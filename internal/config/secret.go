package config

const redactedPlaceholder = "***REDACTED***"

// Secret is a string that never prints its value. The bot token ends up in
// request URLs, so it must stay out of logs and config dumps.
type Secret string

// String returns a redacted placeholder instead of the raw value.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redactedPlaceholder
}

// MarshalJSON returns the redacted placeholder as a JSON string.
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Unmask returns the raw value. Use only where the secret is sent.
func (s Secret) Unmask() string {
	return string(s)
}
