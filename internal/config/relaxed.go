package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/jsonc"
)

// ParseScratchpads decodes a relaxed JSON array of scratchpads. On top of
// plain JSON it accepts comments, trailing commas, unquoted keys and single
// quoted strings, so a list can be written inline in a shell script.
func ParseScratchpads(payload string) ([]Scratchpad, error) {
	data := jsonc.ToJSON(normalizeRelaxed([]byte(payload)))

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var pads []Scratchpad
	if err := dec.Decode(&pads); err != nil {
		return nil, fmt.Errorf("failed to parse scratchpads: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("failed to parse scratchpads: unexpected data after the array")
	}
	if pads == nil {
		return nil, fmt.Errorf("failed to parse scratchpads: expected an array")
	}
	if err := validateScratchpads(pads); err != nil {
		return nil, err
	}
	return pads, nil
}

// normalizeRelaxed rewrites single quoted strings and bare object keys into
// double quoted JSON strings. Comments are copied through for jsonc to strip.
func normalizeRelaxed(src []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(src) + 16)

	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '"':
			end := scanString(src, i, '"')
			out.Write(src[i:end])
			i = end
		case c == '\'':
			end := scanString(src, i, '\'')
			writeSingleQuoted(&out, src[i+1:max(end-1, i+1)])
			i = end
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			end := bytes.IndexByte(src[i:], '\n')
			if end < 0 {
				end = len(src) - i
			}
			out.Write(src[i : i+end])
			i += end
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := bytes.Index(src[i+2:], []byte("*/"))
			if end < 0 {
				out.Write(src[i:])
				return out.Bytes()
			}
			out.Write(src[i : i+2+end+2])
			i += 2 + end + 2
		case isIdentStart(c):
			j := i + 1
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			k := j
			for k < len(src) && isJSONSpace(src[k]) {
				k++
			}
			if k < len(src) && src[k] == ':' {
				out.WriteByte('"')
				out.Write(src[i:j])
				out.WriteByte('"')
			} else {
				out.Write(src[i:j])
			}
			i = j
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.Bytes()
}

// scanString returns the index just past the string starting at src[start].
// An unterminated string runs to the end of the input.
func scanString(src []byte, start int, quote byte) int {
	for i := start + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case quote:
			return i + 1
		}
	}
	return len(src)
}

func writeSingleQuoted(out *bytes.Buffer, body []byte) {
	s := string(body)
	s = strings.ReplaceAll(s, `\'`, `'`)
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && i+1 < len(s):
			b.WriteByte(s[i])
			b.WriteByte(s[i+1])
			i++
		case s[i] == '"':
			b.WriteString(`\"`)
		default:
			b.WriteByte(s[i])
		}
	}
	out.WriteByte('"')
	out.WriteString(b.String())
	out.WriteByte('"')
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
