package content

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/conneroisu/syllabus/internal/errors"
)

const (
	// IndexFile is the landing content of a course.
	IndexFile = "index.mdx"
	// LessonExt is the extension every content file carries.
	LessonExt = ".mdx"

	slugPrefix = "lesson-"

	// MaxTopic and MaxSubtopic bound the two-digit tokens.
	MaxTopic    = 99
	MaxSubtopic = 99
)

// Token is the numeric part of a lesson file name. "03" is topic 3 and
// "0302" is subtopic 2 of topic 3. Subtopic is zero for topic files.
type Token struct {
	Topic    int
	Subtopic int
}

// IsTopic reports whether the token names a topic rather than a subtopic.
func (t Token) IsTopic() bool { return t.Subtopic == 0 }

// String renders the token as it appears in a file name.
func (t Token) String() string {
	if t.IsTopic() {
		return fmt.Sprintf("%02d", t.Topic)
	}
	return fmt.Sprintf("%02d%02d", t.Topic, t.Subtopic)
}

// FileName returns the content file name for the token.
func (t Token) FileName() string { return t.String() + LessonExt }

// Slug returns the URL slug for the token.
func (t Token) Slug() string {
	if t.IsTopic() {
		return fmt.Sprintf("%s%02d", slugPrefix, t.Topic)
	}
	return fmt.Sprintf("%s%02d-%02d", slugPrefix, t.Topic, t.Subtopic)
}

// Less orders tokens numerically; a topic sorts before its subtopics.
func (t Token) Less(o Token) bool {
	if t.Topic != o.Topic {
		return t.Topic < o.Topic
	}
	return t.Subtopic < o.Subtopic
}

// ParseToken parses a 2 or 4 digit token. Topics and subtopics must lie in
// 01..99; any other length or value is rejected.
func ParseToken(tok string) (Token, error) {
	if !isDigits(tok) {
		return Token{}, invalidFileName(tok, "token must be numeric")
	}

	switch len(tok) {
	case 2:
		topic, _ := strconv.Atoi(tok)
		if topic < 1 || topic > MaxTopic {
			return Token{}, invalidFileName(tok, fmt.Sprintf("topic must be between 01 and %02d", MaxTopic))
		}
		return Token{Topic: topic}, nil
	case 4:
		topic, _ := strconv.Atoi(tok[:2])
		sub, _ := strconv.Atoi(tok[2:])
		if topic < 1 || topic > MaxTopic {
			return Token{}, invalidFileName(tok, fmt.Sprintf("topic must be between 01 and %02d", MaxTopic))
		}
		if sub < 1 || sub > MaxSubtopic {
			return Token{}, invalidFileName(tok, fmt.Sprintf("subtopic must be between 01 and %02d", MaxSubtopic))
		}
		return Token{Topic: topic, Subtopic: sub}, nil
	default:
		return Token{}, invalidFileName(tok, fmt.Sprintf("token must have 2 or 4 digits, got %d", len(tok)))
	}
}

// ParseFileName parses a lesson file name such as "0102.mdx".
func ParseFileName(name string) (Token, error) {
	if path.Base(name) != name {
		return Token{}, invalidFileName(name, "not a plain file name")
	}
	if path.Ext(name) != LessonExt {
		return Token{}, invalidFileName(name, "extension must be "+LessonExt)
	}
	return ParseToken(strings.TrimSuffix(name, LessonExt))
}

// ParseSlug parses a lesson slug such as "lesson-01-02".
func ParseSlug(slug string) (Token, error) {
	rest, ok := strings.CutPrefix(slug, slugPrefix)
	if !ok {
		return Token{}, invalidSlug(slug)
	}

	parts := strings.Split(rest, "-")
	for _, p := range parts {
		if len(p) != 2 {
			return Token{}, invalidSlug(slug)
		}
	}
	if len(parts) > 2 {
		return Token{}, invalidSlug(slug)
	}

	tok, err := ParseToken(strings.Join(parts, ""))
	if err != nil {
		return Token{}, errors.WrapValidation(err, errors.ErrCodeInvalidSlug, "invalid lesson slug: "+slug)
	}
	return tok, nil
}

// FileNameToURL maps a content file name to its slug. The index file maps
// to the empty slug, "01.mdx" to "lesson-01" and "0102.mdx" to
// "lesson-01-02". Anything else is an error.
func FileNameToURL(name string) (string, error) {
	if name == IndexFile {
		return "", nil
	}
	tok, err := ParseFileName(name)
	if err != nil {
		return "", err
	}
	return tok.Slug(), nil
}

// URLToFileName is the inverse of FileNameToURL.
func URLToFileName(slug string) (string, error) {
	if slug == "" {
		return IndexFile, nil
	}
	tok, err := ParseSlug(slug)
	if err != nil {
		return "", err
	}
	return tok.FileName(), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func invalidFileName(name, reason string) error {
	return errors.NewValidationError(errors.ErrCodeInvalidFileName,
		fmt.Sprintf("invalid lesson file name %q: %s", name, reason))
}

func invalidSlug(slug string) error {
	return errors.NewValidationError(errors.ErrCodeInvalidSlug,
		fmt.Sprintf("invalid lesson slug %q", slug))
}
