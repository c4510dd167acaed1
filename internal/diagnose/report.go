package diagnose

// Type classifies what electrical element a report implicates.
type Type string

const (
	// TypeRow implicates a shared row line or its pin.
	TypeRow Type = "row"
	// TypeCol implicates a shared column line or its pin.
	TypeCol Type = "col"
	// TypeCharlie implicates a charlieplex pin in one or both of its roles.
	TypeCharlie Type = "charlie"
	// TypeDirect implicates one direct-wired key's dedicated input pin.
	TypeDirect Type = "direct"
	// TypeDirectGnd implicates a direct-wired shield's shared ground rail.
	TypeDirectGnd Type = "direct_gnd"
	// TypeInterrupt implicates a shield's interrupt line.
	TypeInterrupt Type = "interrupt"
	// TypeSingle implicates a discrete switch, diode, or solder joint.
	TypeSingle Type = "single"
)

// Charlieplex role classifications. The row-driving role is "in": a failure
// there can sit in the pin or in the diodes feeding it. The column-sensing
// role is "out": diode faults cannot explain output-role-only failures, so
// only the pin is implicated. "both" points at the physical pin itself.
const (
	RoleIn   = "in"
	RoleOut  = "out"
	RoleBoth = "both"
)

// Report attributes a group of failing keys to one suspected element. Reports
// are recomputed fresh on every diagnosis call and never cached.
type Report struct {
	Type   Type   `json:"type"`
	Shield string `json:"shield"`
	// Pin is the implicated pin identifier, where one applies.
	Pin string `json:"pin,omitempty"`
	// Role is the charlieplex role classification.
	Role string `json:"role,omitempty"`
	// Row and Col carry the absolute logical coordinates of a single-key report.
	Row *int `json:"row,omitempty"`
	Col *int `json:"col,omitempty"`
	// KeyIndices lists every implicated key, ascending.
	KeyIndices []int `json:"keyIndices"`
}
