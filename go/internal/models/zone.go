package models

// ZoneID identifies a zone. Backend ids are numeric but are always handled
// in their decimal string form.
type ZoneID string

func (id ZoneID) String() string { return string(id) }

// ScreenRect places a zone on the map canvas. X, Y, W and H are percentages
// of the canvas in [0,100]; Rotation is in degrees around the rect center.
type ScreenRect struct {
	X        float64 `json:"x" yaml:"x"`
	Y        float64 `json:"y" yaml:"y"`
	W        float64 `json:"w" yaml:"w"`
	H        float64 `json:"h" yaml:"h"`
	Rotation float64 `json:"rotation,omitempty" yaml:"rotate,omitempty"`
}

// Zone represents a named region of the game map.
type Zone struct {
	ID     ZoneID     `json:"id"`
	Name   string     `json:"name"`
	Bounds *Bounds    `json:"bounds,omitempty"`
	Screen ScreenRect `json:"screen"`

	// Resolved is set once ID holds a backend identifier rather than the
	// layout placeholder. Only resolved zones take part in server calls.
	Resolved bool `json:"resolved"`
}
