package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCourseID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"go-basics", false},
		{"intro_to_sql", false},
		{"web.2024", false},
		{"", true},
		{"..", true},
		{"../etc", true},
		{"a/b", true},
		{".hidden", true},
		{"name with space", true},
		{"semi;colon", true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := ValidateCourseID(tt.id)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"plain file", "diagram.png", false},
		{"nested", "figures/diagram.png", false},
		{"empty", "", true},
		{"absolute", "/etc/passwd", true},
		{"parent", "../secret.png", true},
		{"hidden parent", "figures/../../secret.png", true},
		{"null byte", "a\x00.png", true},
		{"pipe", "a|b.png", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateAssetName(t *testing.T) {
	assert.NoError(t, ValidateAssetName("cover.JPG"))
	assert.NoError(t, ValidateAssetName("chart.svg"))
	assert.Error(t, ValidateAssetName("notes.mdx"))
	assert.Error(t, ValidateAssetName("script"))
	assert.Error(t, ValidateAssetName("../cover.png"))
}

func TestValidateOrigin(t *testing.T) {
	allowed := []string{"localhost:8080", "https://courses.example.com"}

	assert.NoError(t, ValidateOrigin("http://localhost:8080", allowed))
	assert.NoError(t, ValidateOrigin("https://courses.example.com", allowed))
	assert.Error(t, ValidateOrigin("", allowed))
	assert.Error(t, ValidateOrigin("ftp://localhost:8080", allowed))
	assert.Error(t, ValidateOrigin("https://evil.example.com", allowed))
}

func TestValidateRedirect(t *testing.T) {
	assert.NoError(t, ValidateRedirect("/go-basics/lesson-01"))
	assert.NoError(t, ValidateRedirect("/course?tags=go"))
	assert.Error(t, ValidateRedirect(""))
	assert.Error(t, ValidateRedirect("https://evil.example.com"))
	assert.Error(t, ValidateRedirect("//evil.example.com"))
	assert.Error(t, ValidateRedirect("/\\evil.example.com"))
	assert.Error(t, ValidateRedirect("lesson-01"))
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"http://localhost:8080", false},
		{"https://example.com/path", false},
		{"javascript:alert(1)", true},
		{"file:///etc/passwd", true},
		{"http://localhost:8080/;rm -rf /", true},
		{"http://", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateBaseURL(t *testing.T) {
	assert.NoError(t, ValidateBaseURL("https://courses.example.com"))
	assert.NoError(t, ValidateBaseURL("http://localhost:8080/docs"))
	assert.Error(t, ValidateBaseURL("courses.example.com"))
	assert.Error(t, ValidateBaseURL("https://courses.example.com?x=1"))
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "alice@example.com", SanitizeInput("  alice@example.com\n"))
	assert.Equal(t, "ab", SanitizeInput("a\x00b"))
	assert.Equal(t, "bell", SanitizeInput("be\x07ll"))
	assert.Equal(t, "Ünïcode name", SanitizeInput("Ünïcode name"))
}
