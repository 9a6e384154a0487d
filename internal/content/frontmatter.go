package content

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/conneroisu/syllabus/internal/errors"
)

const frontMatterDelimiter = "---"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FrontMatter is the metadata block at the top of a content file.
type FrontMatter struct {
	Title       string     `yaml:"title" json:"title"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Tags        StringList `yaml:"tags,omitempty" json:"tags,omitempty"`
	Authors     []Author   `yaml:"authors,omitempty" json:"authors,omitempty"`
	Created     *time.Time `yaml:"created,omitempty" json:"created,omitempty"`
}

// StringList accepts either a YAML sequence or a single scalar, so
// "tags: go" and "tags: [go, web]" both decode.
type StringList []string

func (s *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" || strings.TrimSpace(value.Value) == "" {
			*s = nil
			return nil
		}
		*s = StringList{strings.TrimSpace(value.Value)}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		out := make(StringList, 0, len(items))
		for _, item := range items {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		*s = out
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", value.Line)
	}
}

// Author credits a person on a course or lesson.
type Author struct {
	Name string `yaml:"name" json:"name"`
	Link string `yaml:"link,omitempty" json:"link,omitempty"`
}

// UnmarshalYAML accepts "name" shorthand as well as the {name, link} map.
func (a *Author) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		a.Name = strings.TrimSpace(value.Value)
		return nil
	}
	type plain Author
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*a = Author(p)
	return nil
}

// ParseFrontMatter splits src into its front matter and body. The block must
// open on the first line with "---" and close with another "---" line. A
// file without a block has empty front matter and src as its body.
func ParseFrontMatter(src []byte) (FrontMatter, []byte, error) {
	var fm FrontMatter

	src = bytes.TrimPrefix(src, utf8BOM)
	first, rest, found := bytes.Cut(src, []byte("\n"))
	if !found || string(bytes.TrimRight(first, " \r")) != frontMatterDelimiter {
		return fm, src, nil
	}

	offset := 0
	for {
		end := bytes.IndexByte(rest[offset:], '\n')
		line := rest[offset:]
		if end >= 0 {
			line = rest[offset : offset+end]
		}

		if string(bytes.TrimRight(line, " \r")) == frontMatterDelimiter {
			block := rest[:offset]
			var body []byte
			if end >= 0 {
				body = rest[offset+end+1:]
			}
			if err := yaml.Unmarshal(block, &fm); err != nil {
				return FrontMatter{}, nil, errors.Wrap(err, errors.ErrorTypeContent, errors.ErrCodeFrontMatter, "malformed front matter")
			}
			fm.Title = strings.TrimSpace(fm.Title)
			return fm, body, nil
		}

		if end < 0 {
			return FrontMatter{}, nil, errors.NewContentError(errors.ErrCodeFrontMatter, "front matter is not terminated by ---", nil)
		}
		offset += end + 1
	}
}
