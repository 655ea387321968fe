package middleware

import (
	"fmt"
	"regexp"
	"strings"
)

// Input validation and sanitization utilities

// allowedImageMIMEs is the accepted upload allow-list. Anything else is
// rejected at the boundary instead of being forwarded to the model.
var allowedImageMIMEs = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
	"image/bmp":  true,
}

// ValidateImageMIME checks the declared content type against the allow-list
func ValidateImageMIME(mimeType string) error {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	// strip parameters such as "; charset="
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if !allowedImageMIMEs[mt] {
		return fmt.Errorf("unsupported image type: %s (allowed: jpeg, png, webp, gif, bmp)", mimeType)
	}
	return nil
}

// ValidateImageSize enforces the configured upload cap
func ValidateImageSize(size int64, maxBytes int64) error {
	if size <= 0 {
		return fmt.Errorf("image payload is empty")
	}
	if maxBytes > 0 && size > maxBytes {
		return fmt.Errorf("image too large: %d bytes (max %d)", size, maxBytes)
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateTenantID validates tenant ID format
func ValidateTenantID(tenant string) error {
	if tenant == "" {
		return fmt.Errorf("tenant ID cannot be empty")
	}

	// Allow alphanumeric, dash, underscore (max 64 chars)
	pattern := `^[a-zA-Z0-9_-]{1,64}$`
	matched, _ := regexp.MatchString(pattern, tenant)
	if !matched {
		return fmt.Errorf("invalid tenant ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}

	return nil
}

// ValidateDiagnosisID validates diagnosis ID format (UUID)
func ValidateDiagnosisID(id string) error {
	if id == "" {
		return fmt.Errorf("diagnosis ID cannot be empty")
	}

	pattern := `^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`
	matched, _ := regexp.MatchString(pattern, id)
	if !matched {
		return fmt.Errorf("invalid diagnosis ID format")
	}

	return nil
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidateDays validates days parameter
func ValidateDays(days int) int {
	if days <= 0 {
		return 7 // default
	}
	if days > 365 {
		return 365 // max 1 year
	}
	return days
}
