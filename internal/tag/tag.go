package tag

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"picture/internal/markup"
)

// DefaultPreset is used when a directive names no preset.
const DefaultPreset = "default"

// Usage is the directive syntax shown in parse errors.
const Usage = `{% picture [preset] path/to/img.jpg [source_key: path/to/alt-img.jpg] [attr="value"] %}`

// ErrMalformed reports directive text that does not match the grammar.
var ErrMalformed = errors.New("picture directive is formatted incorrectly")

// SyntaxError carries the rejected directive text.
type SyntaxError struct {
	Text string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%v: %q; try %s", ErrMalformed, e.Text, Usage)
}

func (e *SyntaxError) Unwrap() error { return ErrMalformed }

// ErrorKind classifies the error for callers that map failures to statuses.
func (e *SyntaxError) ErrorKind() string { return "usage" }

// Override replaces the image for one preset source.
type Override struct {
	Key string `json:"key"`
	Src string `json:"src"`
}

// Directive is a parsed picture directive.
type Directive struct {
	Preset    string       `json:"preset"`
	Src       string       `json:"src"`
	Overrides []Override   `json:"overrides,omitempty"`
	Attrs     markup.Attrs `json:"attrs,omitempty"`
}

// Override returns the image configured for key, if any.
func (d Directive) Override(key string) (string, bool) {
	for i := len(d.Overrides) - 1; i >= 0; i-- {
		if d.Overrides[i].Key == key {
			return d.Overrides[i].Src, true
		}
	}
	return "", false
}

var (
	directiveRe = regexp.MustCompile(`^(?:(?P<preset>[^\s.:]+)\s+)?` +
		`(?P<src>\S+\.[a-zA-Z0-9]{3,4})\s*` +
		`(?P<sources>(?:source_[^\s:]+:\s+\S+\.[a-zA-Z0-9]{3,4}\s*)+)?` +
		`(?P<attrs>[\s\S]+)?$`)
	overrideRe = regexp.MustCompile(`(source_[^\s:]+):\s+(\S+\.[a-zA-Z0-9]{3,4})`)
	attrRe     = regexp.MustCompile(`([^\s="]+)(?:="([^"]*)")?`)
)

// Parse parses directive text (the part between "picture" and "%}").
func Parse(text string) (Directive, error) {
	trimmed := strings.TrimSpace(text)
	m := directiveRe.FindStringSubmatch(trimmed)
	if m == nil {
		return Directive{}, &SyntaxError{Text: trimmed}
	}
	group := func(name string) string {
		return m[directiveRe.SubexpIndex(name)]
	}

	d := Directive{Preset: group("preset"), Src: group("src")}
	if d.Preset == "" {
		d.Preset = DefaultPreset
	}
	for _, o := range overrideRe.FindAllStringSubmatch(group("sources"), -1) {
		d.Overrides = append(d.Overrides, Override{Key: o[1], Src: o[2]})
	}
	for _, a := range attrRe.FindAllStringSubmatchIndex(group("attrs"), -1) {
		attrs := group("attrs")
		name := attrs[a[2]:a[3]]
		var value *string
		if a[4] >= 0 {
			value = markup.Value(attrs[a[4]:a[5]])
		}
		d.Attrs.Set(name, value)
	}
	return d, nil
}

var liquidRe = regexp.MustCompile(`\{%-?\s*picture\s+([\s\S]*?)\s*-?%\}`)

// ReplaceAll replaces every {% picture ... %} directive in doc with the
// output of fn. The first error aborts and is returned.
func ReplaceAll(doc string, fn func(Directive) (string, error)) (string, error) {
	var (
		b    strings.Builder
		last int
	)
	for _, loc := range liquidRe.FindAllStringSubmatchIndex(doc, -1) {
		d, err := Parse(doc[loc[2]:loc[3]])
		if err != nil {
			return "", err
		}
		out, err := fn(d)
		if err != nil {
			return "", err
		}
		b.WriteString(doc[last:loc[0]])
		b.WriteString(out)
		last = loc[1]
	}
	if last == 0 {
		return doc, nil
	}
	b.WriteString(doc[last:])
	return b.String(), nil
}

// Count returns the number of picture directives in doc.
func Count(doc string) int {
	return len(liquidRe.FindAllStringIndex(doc, -1))
}
