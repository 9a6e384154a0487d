// Package validation provides security validation for values that reach the
// filesystem or the browser: course ids, asset names, origins, redirect
// targets and form input.
package validation

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

var courseIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ImageExtensions lists the asset extensions served from a course image dir.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".avif"}

// ValidateCourseID checks that id names exactly one directory below the
// content root. Course ids come straight from the URL.
func ValidateCourseID(id string) error {
	if id == "" {
		return fmt.Errorf("course id cannot be empty")
	}
	if len(id) > 128 {
		return fmt.Errorf("course id is too long")
	}
	if strings.Contains(id, "..") {
		return fmt.Errorf("course id contains path traversal: %s", id)
	}
	if !courseIDPattern.MatchString(id) {
		return fmt.Errorf("course id contains invalid characters: %s", id)
	}
	return nil
}

// ValidatePath validates a relative file path below some root.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return fmt.Errorf("absolute path not allowed: %s", path)
	}

	cleanPath := filepath.Clean(path)
	if cleanPath == ".." || strings.HasPrefix(cleanPath, "../") || strings.Contains(cleanPath, "/../") {
		return fmt.Errorf("path traversal detected: %s", path)
	}
	if strings.Contains(path, "\x00") {
		return fmt.Errorf("path contains null byte")
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "<", ">"}
	for _, char := range dangerousChars {
		if strings.Contains(path, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}

// ValidateAssetName checks an image file name requested from a course
// asset directory.
func ValidateAssetName(name string) error {
	if err := ValidatePath(name); err != nil {
		return err
	}
	return ValidateFileExtension(name, ImageExtensions)
}

// ValidateOrigin validates WebSocket origin for CSRF protection
func ValidateOrigin(origin string, allowedOrigins []string) error {
	if origin == "" {
		return fmt.Errorf("origin header is required")
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("invalid origin format: %w", err)
	}

	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return fmt.Errorf("invalid origin scheme '%s': only http and https are allowed", originURL.Scheme)
	}

	for _, allowed := range allowedOrigins {
		if origin == allowed || originURL.Host == allowed {
			return nil
		}
	}

	return fmt.Errorf("origin '%s' is not in allowed origins list", origin)
}

// ValidateRedirect accepts only same-site absolute paths such as
// "/go-basics/lesson-01" so a ?next= parameter cannot send users elsewhere.
func ValidateRedirect(target string) error {
	if target == "" || !strings.HasPrefix(target, "/") {
		return fmt.Errorf("redirect must be an absolute path")
	}
	if strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fmt.Errorf("redirect must stay on this site")
	}
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("invalid redirect: %w", err)
	}
	if u.Scheme != "" || u.Host != "" {
		return fmt.Errorf("redirect must stay on this site")
	}
	return nil
}

// ValidateFileExtension validates file extensions against an allowlist
func ValidateFileExtension(filename string, allowedExtensions []string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return fmt.Errorf("file must have an extension")
	}

	for _, allowed := range allowedExtensions {
		if ext == strings.ToLower(allowed) {
			return nil
		}
	}

	return fmt.Errorf("file extension '%s' is not allowed", ext)
}

// SanitizeInput removes null bytes and control characters from form input
// and trims surrounding whitespace.
func SanitizeInput(input string) string {
	var sanitized strings.Builder
	for _, r := range input {
		if r >= 32 && r != 0x7f || r == '\t' {
			sanitized.WriteRune(r)
		}
	}

	return strings.TrimSpace(sanitized.String())
}
