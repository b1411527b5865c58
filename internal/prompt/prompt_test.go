package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) *string { return &s }

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		stored *string
		want   Instruction
	}{
		{name: "absent", stored: nil, want: Instruction{Enabled: true}},
		{name: "active", stored: str("be brief"), want: Instruction{Present: true, Enabled: true, Text: "be brief"}},
		{name: "disabled", stored: str(DisabledMarker + "be brief"), want: Instruction{Present: true, Text: "be brief"}},
		{name: "marker only", stored: str(DisabledMarker), want: Instruction{Present: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.stored))
		})
	}
}

func TestEffective(t *testing.T) {
	assert.Equal(t, "default", Effective(nil, "default"))
	assert.Equal(t, "custom", Effective(str("custom"), "default"))
	assert.Equal(t, "default", Effective(str(DisabledMarker+"custom"), "default"))
	assert.Equal(t, "default", Effective(str("   "), "default"))
}

func TestDisable(t *testing.T) {
	assert.Nil(t, Disable(nil), "absent stays absent")

	disabled := Disable(str("custom"))
	require.NotNil(t, disabled)
	assert.Equal(t, DisabledMarker+"custom", *disabled)

	again := Disable(disabled)
	assert.Equal(t, *disabled, *again, "disabling twice is a no-op")
}

func TestEnable(t *testing.T) {
	assert.Nil(t, Enable(nil), "absent stays absent")

	active := str("custom")
	assert.Equal(t, "custom", *Enable(active), "enabling an active instruction is a no-op")

	enabled := Enable(str(DisabledMarker + "custom"))
	require.NotNil(t, enabled)
	assert.Equal(t, "custom", *enabled)
}

func TestReset(t *testing.T) {
	assert.Nil(t, Reset(nil))
	assert.Nil(t, Reset(str("custom")))
	assert.Nil(t, Reset(str(DisabledMarker+"custom")))
}

func TestApplyIsAlwaysEnabled(t *testing.T) {
	stored := Disable(str("old"))
	require.False(t, Parse(stored).Enabled)

	stored = Apply("template text")

	enabled, text := Resolve(stored)
	assert.True(t, enabled)
	assert.Equal(t, "template text", text)
}

func TestWithTextPreservesDisabledFlag(t *testing.T) {
	previous := str(DisabledMarker + "old text")
	wasDisabled := !Parse(previous).Enabled

	stored := WithText("new text", wasDisabled)

	enabled, text := Resolve(stored)
	assert.False(t, enabled)
	assert.Equal(t, "new text", text)

	enabled, text = Resolve(WithText("new text", false))
	assert.True(t, enabled)
	assert.Equal(t, "new text", text)
}
