package devicetree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProperty_WholeWordMatch(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// "gpios" must not match inside "row-gpios".
	text := `
kscan {
    row-gpios = <&gpio0 1 FLAG>;
    gpios = <&gpio0 2 FLAG>;
};
`

	// --- Act ---
	value, _, ok := Property(text, "gpios", 0)

	// --- Assert ---
	require.True(t, ok)
	require.Contains(t, value, "&gpio0 2")
	require.NotContains(t, value, "&gpio0 1")
}

func TestProperty_SemicolonInsideAnglesDoesNotTerminate(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	text := `name = <1 (2 | 3)> , <4>;next = <5>;`

	// --- Act ---
	value, end, ok := Property(text, "name", 0)

	// --- Assert ---
	require.True(t, ok)
	require.Contains(t, value, "<4>")
	require.NotContains(t, value, "5")
	next, _, ok := Property(text, "next", end)
	require.True(t, ok)
	require.Equal(t, "<5>", next)
}

func TestStringProperty(t *testing.T) {
	t.Parallel()

	text := `kscan { compatible = "zmk,kscan-gpio-matrix"; diode-direction = "col2row"; };`

	value, ok := StringProperty(text, "diode-direction")
	require.True(t, ok)
	require.Equal(t, "col2row", value)

	_, ok = StringProperty(text, "missing")
	require.False(t, ok)
}

func TestReferenceProperty(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// The marker also appears inside a compatible string, which must not be
	// mistaken for the chosen reference.
	text := `
/ {
    layout_0 { compatible = "zmk,physical-layout"; };
    chosen { zmk,physical-layout = &my_layout; };
};
`

	// --- Act ---
	label, ok := ReferenceProperty(text, "physical-layout")

	// --- Assert ---
	require.True(t, ok)
	require.Equal(t, "my_layout", label)
}

func TestReferenceProperty_Missing(t *testing.T) {
	t.Parallel()

	_, ok := ReferenceProperty(`layout { compatible = "zmk,physical-layout"; };`, "physical-layout")
	require.False(t, ok)
}

func TestNodeByLabel_MatchesBracesStructurally(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	text := `
/ {
    chosen { transform = &t0; };
    t0: transform_0 {
        inner { map = <1>; };
        map = <2>;
    };
    other { map = <3>; };
};
`

	// --- Act ---
	body, _, ok := NodeByLabel(text, "t0")

	// --- Assert ---
	require.True(t, ok)
	require.Contains(t, body, "map = <2>")
	require.Contains(t, body, "inner")
	require.NotContains(t, body, "map = <3>")
}

func TestNodeByLabel_ReferenceOccurrenceSkipped(t *testing.T) {
	t.Parallel()

	// A '&t0' reference before the definition must not be mistaken for it.
	text := `use = <&t0>; t0: node_0 { x = <1>; };`

	body, _, ok := NodeByLabel(text, "t0")
	require.True(t, ok)
	require.Contains(t, body, "x = <1>")
}

func TestCompatibleIndex(t *testing.T) {
	t.Parallel()

	text := `
a { compatible = "zmk,keymap"; };
b { compatible = "zmk,kscan-gpio-charlieplex"; gpios = <&gpio0 1 F>; };
`

	at := CompatibleIndex(text, "charlieplex")
	require.GreaterOrEqual(t, at, 0)
	require.Contains(t, text[at:], "gpios")

	require.Equal(t, -1, CompatibleIndex(text, "direct"))
}

func TestAngleValues_ParenGroupsStayWhole(t *testing.T) {
	t.Parallel()

	tokens := AngleValues("<&key_physical_attrs 100 100 600 100 (-3000) 650 150>")
	require.Equal(t, []string{"&key_physical_attrs", "100", "100", "600", "100", "(-3000)", "650", "150"}, tokens)

	tokens = AngleValues("<&gpio0 13 (GPIO_ACTIVE_LOW | GPIO_PULL_UP)>, <&gpio0 14 FLAG>")
	require.Equal(t, []string{"&gpio0", "13", "(GPIO_ACTIVE_LOW | GPIO_PULL_UP)", "&gpio0", "14", "FLAG"}, tokens)
}

func TestParseInt(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"100", 100, true},
		{"0", 0, true},
		{"-42", -42, true},
		{"(-9000)", -9000, true},
		{"( -9000 )", -9000, true},
		{"0x1f", 31, true},
		{"GPIO_ACTIVE_HIGH", 0, false},
		{"(GPIO_ACTIVE_LOW | GPIO_PULL_UP)", 0, false},
		{"", 0, false},
	}

	for _, tc := range cases {
		got, ok := ParseInt(tc.in)
		require.Equal(t, tc.ok, ok, "input %q", tc.in)
		if tc.ok {
			require.Equal(t, tc.want, got, "input %q", tc.in)
		}
	}
}
