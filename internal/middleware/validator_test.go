package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateImageMIME(t *testing.T) {
	for _, ok := range []string{
		"image/jpeg",
		"image/png",
		"image/webp",
		"IMAGE/PNG",
		"image/jpeg; charset=binary",
	} {
		assert.NoError(t, ValidateImageMIME(ok), ok)
	}
	for _, bad := range []string{
		"",
		"text/html",
		"application/pdf",
		"image/svg+xml",
	} {
		assert.Error(t, ValidateImageMIME(bad), bad)
	}
}

func TestValidateImageSize(t *testing.T) {
	assert.Error(t, ValidateImageSize(0, 1024))
	assert.Error(t, ValidateImageSize(2048, 1024))
	assert.NoError(t, ValidateImageSize(512, 1024))
	// zero max means uncapped
	assert.NoError(t, ValidateImageSize(1<<30, 0))
}

func TestValidateTenantID(t *testing.T) {
	assert.NoError(t, ValidateTenantID("farm-a"))
	assert.NoError(t, ValidateTenantID("tenant_01"))
	assert.Error(t, ValidateTenantID(""))
	assert.Error(t, ValidateTenantID("bad tenant"))
	assert.Error(t, ValidateTenantID("x/../../etc"))
}

func TestValidateDiagnosisID(t *testing.T) {
	assert.NoError(t, ValidateDiagnosisID("a3bb189e-8bf9-3888-9912-ace4e6543002"))
	assert.Error(t, ValidateDiagnosisID(""))
	assert.Error(t, ValidateDiagnosisID("not-a-uuid"))
}

func TestValidateLimitClamps(t *testing.T) {
	assert.Equal(t, 20, ValidateLimit(0))
	assert.Equal(t, 20, ValidateLimit(-5))
	assert.Equal(t, 35, ValidateLimit(35))
	assert.Equal(t, 100, ValidateLimit(5000))
}

func TestValidateDaysClamps(t *testing.T) {
	assert.Equal(t, 7, ValidateDays(0))
	assert.Equal(t, 30, ValidateDays(30))
	assert.Equal(t, 365, ValidateDays(4000))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "tomato", SanitizeString("  tomato\x00 "))
	assert.Equal(t, "a b", SanitizeString("a\x01 b"))
}
