// Package prompt resolves the analysis instruction stored on a subject.
//
// The stored value is nil (use the default), custom text, or custom text
// prefixed with DisabledMarker. The marker is only ever read or written here.
package prompt

import "strings"

const DisabledMarker = "[disabled]"

// Instruction is the decoded form of a stored instruction.
type Instruction struct {
	Present bool
	Enabled bool
	Text    string
}

// Parse decodes a stored instruction. An absent instruction is reported as
// enabled since the default is then in effect.
func Parse(stored *string) Instruction {
	if stored == nil {
		return Instruction{Enabled: true}
	}
	if text, ok := strings.CutPrefix(*stored, DisabledMarker); ok {
		return Instruction{Present: true, Enabled: false, Text: text}
	}
	return Instruction{Present: true, Enabled: true, Text: *stored}
}

// Resolve returns whether the custom instruction is active and its text
// without the marker. text is empty when no instruction is stored.
func Resolve(stored *string) (enabled bool, text string) {
	in := Parse(stored)
	return in.Enabled, in.Text
}

// Effective returns the instruction to send to the analyzer.
func Effective(stored *string, defaultText string) string {
	in := Parse(stored)
	if in.Present && in.Enabled && strings.TrimSpace(in.Text) != "" {
		return in.Text
	}
	return defaultText
}

func Disable(stored *string) *string {
	in := Parse(stored)
	if !in.Present || !in.Enabled {
		return stored
	}
	return ptr(DisabledMarker + in.Text)
}

func Enable(stored *string) *string {
	in := Parse(stored)
	if !in.Present || in.Enabled {
		return stored
	}
	return ptr(in.Text)
}

func Reset(*string) *string {
	return nil
}

// Apply stores template text verbatim; the result is always enabled.
func Apply(templateText string) *string {
	return ptr(templateText)
}

// WithText encodes new custom text, keeping the disabled flag when asked to.
func WithText(text string, disabled bool) *string {
	if disabled {
		return ptr(DisabledMarker + text)
	}
	return ptr(text)
}

func ptr(s string) *string {
	return &s
}
