package utils

// MaskSecret renders a secret safe for logs, keeping a short prefix.
func MaskSecret(s string) string {
	if len(s) <= 4 {
		return "*****"
	}
	return s[:4] + "*****"
}
