package version

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Version
	}{
		{name: "three segments", input: "1.2.3", want: New(1, 2, 3, "")},
		{name: "with qualifier", input: "1.0.0.qualifier", want: New(1, 0, 0, "qualifier")},
		{name: "qualifier with dots", input: "3.0.0.RC1.build", want: New(3, 0, 0, "RC1.build")},
		{name: "surrounding whitespace", input: "  2.1.0 \n", want: New(2, 1, 0, "")},
		{name: "leading zeros", input: "01.002.3", want: New(1, 2, 3, "")},
		{name: "zeros", input: "0.0.0", want: New(0, 0, 0, "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"1",
		"1.2",
		"a.2.3",
		"1.b.3",
		"1.2.c",
		"-1.2.3",
		"1.-2.3",
		"1..3",
		"1.2.3.",
		"1.2. 3",
		"99999999999999999999.0.0",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidFormat), "expected ErrInvalidFormat, got %v", err)
		})
	}
}

func TestString_OmitsEmptyQualifier(t *testing.T) {
	assert.Equal(t, "1.2.3", New(1, 2, 3, "").String())
	assert.Equal(t, "1.2.3.q", New(1, 2, 3, "q").String())
}

func TestIncrement_DoesNotResetLowerFields(t *testing.T) {
	v := New(1, 2, 3, "q")

	assert.Equal(t, New(2, 2, 3, "q"), v.IncrementMajor())
	assert.Equal(t, New(1, 3, 3, "q"), v.IncrementMinor())
	assert.Equal(t, New(1, 2, 4, "q"), v.IncrementMicro())

	// receiver untouched
	assert.Equal(t, New(1, 2, 3, "q"), v)
}

func TestIncrement_ByPart(t *testing.T) {
	v := New(1, 2, 3, "")
	assert.Equal(t, v.IncrementMajor(), v.Increment(Major))
	assert.Equal(t, v.IncrementMinor(), v.Increment(Minor))
	assert.Equal(t, v.IncrementMicro(), v.Increment(Micro))
}

func TestParsePart(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want Part
	}{
		{"major", Major},
		{"Minor", Minor},
		{"micro", Micro},
		{"patch", Micro},
	} {
		got, err := ParsePart(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.NotEmpty(t, got.String())
	}

	_, err := ParsePart("build")
	assert.Error(t, err)
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("1.2") })
}

// Property-based tests using rapid

func TestVersion_PropertyBased_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		major := rapid.IntRange(0, 100000).Draw(t, "major")
		minor := rapid.IntRange(0, 100000).Draw(t, "minor")
		micro := rapid.IntRange(0, 100000).Draw(t, "micro")
		qualifier := rapid.StringMatching(`([A-Za-z0-9_-][A-Za-z0-9_.-]*)?`).Draw(t, "qualifier")

		text := fmt.Sprintf("%d.%d.%d", major, minor, micro)
		if qualifier != "" {
			text += "." + qualifier
		}

		v, err := Parse(text)
		require.NoError(t, err)
		assert.Equal(t, text, v.String(), "format(parse(s)) should equal s for canonical input")

		again, err := Parse(v.String())
		require.NoError(t, err)
		assert.True(t, v.Equal(again))
	})
}

func TestVersion_PropertyBased_IncrementChangesOneField(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := New(
			rapid.IntRange(0, 1000).Draw(t, "major"),
			rapid.IntRange(0, 1000).Draw(t, "minor"),
			rapid.IntRange(0, 1000).Draw(t, "micro"),
			rapid.StringMatching(`[a-z]{0,8}`).Draw(t, "qualifier"),
		)
		part := rapid.SampledFrom(Parts).Draw(t, "part")

		got := v.Increment(part)

		changed := 0
		if got.Major != v.Major {
			changed++
		}
		if got.Minor != v.Minor {
			changed++
		}
		if got.Micro != v.Micro {
			changed++
		}
		assert.Equal(t, 1, changed)
		assert.Equal(t, v.Qualifier, got.Qualifier)
	})
}
