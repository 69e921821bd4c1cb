package utils

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "hello", SanitizeInput("  hello  "))
	assert.Equal(t, "&lt;b&gt;bold&lt;/b&gt;", SanitizeInput("<b>bold</b>"))
	assert.NotContains(t, SanitizeInput("a\x00b\x1fc"), "\x00")
}

func TestSanitizeEmail(t *testing.T) {
	email, err := SanitizeEmail("  User@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", email)

	_, err = SanitizeEmail("not-an-email")
	assert.Error(t, err)

	_, err = SanitizeEmail("")
	assert.Error(t, err)
}

func TestSanitizePhone(t *testing.T) {
	phone, err := SanitizePhone("(961) 70-123456")
	require.NoError(t, err)
	assert.Equal(t, "+96170123456", phone)

	// Optional field
	phone, err = SanitizePhone("  ")
	require.NoError(t, err)
	assert.Equal(t, "", phone)

	_, err = SanitizePhone("123")
	assert.Error(t, err)
}

func TestValidateFile(t *testing.T) {
	assert.NoError(t, ValidateFile("photo.jpg", 1024))
	assert.NoError(t, ValidateFile("photo.WEBP", 1024))
	assert.Error(t, ValidateFile("script.exe", 1024))
	assert.Error(t, ValidateFile("photo.jpg", 6*1024*1024))
}

func TestUniqueFilename(t *testing.T) {
	a := UniqueFilename("photo.jpg")
	b := UniqueFilename("photo.jpg")

	assert.NotEqual(t, a, b)
	assert.Equal(t, ".jpg", filepath.Ext(a))
	assert.False(t, strings.Contains(a, "photo"))
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret-password", hash)

	assert.NoError(t, CheckPassword("s3cret-password", hash))
	assert.Error(t, CheckPassword("wrong-password", hash))
}
