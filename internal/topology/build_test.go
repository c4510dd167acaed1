package topology

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/vk/keygridgo/internal/corpus"
)

func loadFixtureCorpus(t *testing.T) *corpus.Corpus {
	t.Helper()
	c, err := corpus.LoadDir(context.Background(), "testdata/corne")
	require.NoError(t, err)
	return c
}

func TestBuild_FixtureCorpus(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	c := loadFixtureCorpus(t)

	// --- Act ---
	topo, err := Build(context.Background(), c)

	// --- Assert ---
	require.NoError(t, err)

	require.Len(t, topo.Keys, 12)
	require.Len(t, topo.Matrix, 12)
	require.Equal(t, DiodeColToRow, topo.Diode)

	// Key geometry comes out in source order, in real units.
	require.Equal(t, 1.0, topo.Keys[0].Width)
	require.Equal(t, 4.0, topo.Keys[3].X)
	require.Equal(t, -30.0, topo.Keys[11].Rotation)
	require.Equal(t, 6.5, topo.Keys[11].RotationX)

	// The transform is index-aligned with the keys.
	require.Equal(t, &MatrixEntry{Row: 1, Col: 3}, topo.Matrix[9])

	// Shields in declaration order; the reset pseudo-shield is gone.
	require.Len(t, topo.Shields, 2)
	left, right := topo.Shields[0], topo.Shields[1]
	require.Equal(t, "corne_left", left.Name)
	require.Equal(t, "corne_right", right.Name)

	require.Equal(t, 0, left.ColOffset)
	require.Equal(t, 3, right.ColOffset)

	// Row pins come from the shared .dtsi and apply to both halves; column
	// pins come from the per-side overlays.
	require.Equal(t, WiringMatrix, left.Wiring)
	require.Equal(t, map[int]string{0: "pro_micro 4", 1: "pro_micro 5"}, left.Pins.Row)
	require.Equal(t, map[int]string{0: "pro_micro 21", 1: "pro_micro 20", 2: "pro_micro 19"}, left.Pins.Col)
	require.Equal(t, map[int]string{0: "pro_micro 18", 1: "pro_micro 15", 2: "pro_micro 14"}, right.Pins.Col)
}

func TestBuild_EmptyCorpusIsFatal(t *testing.T) {
	t.Parallel()

	// --- Act ---
	_, err := Build(context.Background(), corpus.New(nil))

	// --- Assert ---
	require.ErrorIs(t, err, ErrNoInputFiles)
}

func TestBuild_NoKeysIsFatal(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	c := corpus.New(map[string]string{
		"build.yaml": "shield: corne_left\n",
	})

	// --- Act ---
	_, err := Build(context.Background(), c)

	// --- Assert ---
	require.ErrorIs(t, err, ErrNoKeys)
}

func TestBuild_ShortTransformLeavesTailSparse(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	c := corpus.New(map[string]string{
		"kb.dtsi": `
/ {
    layout_0 {
        compatible = "zmk,physical-layout";
        keys
            = <&key_physical_attrs 100 100   0 0 0 0 0>
            , <&key_physical_attrs 100 100 100 0 0 0 0>
            ;
    };
    t0: t0 { map = <RC(0,0)>; };
};
`,
	})

	// --- Act ---
	topo, err := Build(context.Background(), c)

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, topo.Matrix, 2)
	require.NotNil(t, topo.Matrix[0])
	require.Nil(t, topo.Matrix[1])
}

func TestTopology_InterchangeJSON(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	irq := "gpio0 3"
	topo := &Topology{
		Keys:   []PhysicalKey{{X: 1, Y: 0, Width: 1, Height: 1}},
		Matrix: []*MatrixEntry{nil},
		Shields: []*Shield{{
			Name:      "pad",
			ColOffset: 2,
			Wiring:    WiringCharlieplex,
			Diode:     DiodeColToRow,
			Pins: PinAssignment{
				Row:       map[int]string{},
				Col:       map[int]string{},
				GPIOs:     map[int]string{0: "gpio0 10"},
				Direct:    map[int]string{},
				Interrupt: irq,
			},
		}},
		Diode: DiodeColToRow,
	}

	// --- Act ---
	raw, err := json.Marshal(topo)

	// --- Assert ---
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))

	want := map[string]any{
		"physicalKeys": []any{map[string]any{
			"x": 1.0, "y": 0.0, "w": 1.0, "h": 1.0, "r": 0.0, "rx": 0.0, "ry": 0.0,
		}},
		"matrixMap": []any{nil},
		"pinMap": map[string]any{
			"pad": map[string]any{
				"row":       map[string]any{},
				"col":       map[string]any{},
				"gpios":     map[string]any{"0": "gpio0 10"},
				"direct":    map[string]any{},
				"interrupt": "gpio0 3",
				"colOffset": 2.0,
				"rowOffset": 0.0,
			},
		},
		"diodeDirection": "col2row",
	}
	require.Empty(t, cmp.Diff(want, got))
}

func TestTopology_InterchangeJSONNullInterrupt(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	topo := &Topology{
		Keys:    []PhysicalKey{{}},
		Matrix:  []*MatrixEntry{{Row: 0, Col: 0}},
		Shields: []*Shield{{Name: "pad", Pins: newPinAssignment()}},
		Diode:   DiodeColToRow,
	}

	// --- Act ---
	raw, err := json.Marshal(topo)

	// --- Assert ---
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	pad := got["pinMap"].(map[string]any)["pad"].(map[string]any)
	require.Contains(t, pad, "interrupt")
	require.Nil(t, pad["interrupt"])
}
