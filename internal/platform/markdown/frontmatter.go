// Package markdown reads and writes markdown documents that open with a YAML
// frontmatter block.
package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const fence = "---\n"

var ErrUnterminated = errors.New("frontmatter has no closing fence")

// Render writes meta as frontmatter followed by body. Pass a struct to keep
// keys in declaration order; maps come out sorted.
func Render(meta any, body string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(fence)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(meta); err != nil {
		return nil, fmt.Errorf("encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode frontmatter: %w", err)
	}
	buf.WriteString(fence)
	if !strings.HasPrefix(body, "\n") {
		buf.WriteByte('\n')
	}
	buf.WriteString(body)
	return buf.Bytes(), nil
}

// Decode unmarshals the frontmatter of raw into meta and returns the body.
// A document without frontmatter is returned whole and meta is left as is.
func Decode(raw []byte, meta any) (string, error) {
	content := strings.ReplaceAll(string(raw), "\r\n", "\n")
	if !strings.HasPrefix(content, fence) {
		return content, nil
	}
	rest := content[len(fence):]
	var head, body string
	switch {
	case strings.HasPrefix(rest, fence):
		body = rest[len(fence):]
	default:
		idx := strings.Index(rest, "\n"+fence)
		if idx < 0 {
			return "", ErrUnterminated
		}
		head = rest[:idx+1]
		body = rest[idx+1+len(fence):]
	}
	if err := yaml.Unmarshal([]byte(head), meta); err != nil {
		return "", fmt.Errorf("decode frontmatter: %w", err)
	}
	return strings.TrimPrefix(body, "\n"), nil
}
