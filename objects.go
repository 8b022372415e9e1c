package assist

type Position string

const (
	PositionLeft   Position = "left"
	PositionCenter Position = "center"
	PositionRight  Position = "right"
)

func (p Position) Valid() bool {
	switch p {
	case PositionLeft, PositionCenter, PositionRight:
		return true
	}
	return false
}

type Distance string

const (
	DistanceNear   Distance = "near"
	DistanceMedium Distance = "medium"
	DistanceFar    Distance = "far"
)

func (d Distance) Valid() bool {
	switch d {
	case DistanceNear, DistanceMedium, DistanceFar:
		return true
	}
	return false
}

// DetectedObject is one entry of a scan result. Values are never mutated
// after the producer returns them.
type DetectedObject struct {
	Name     string   `json:"name" yaml:"name"`
	Position Position `json:"position" yaml:"position"`
	Distance Distance `json:"distance" yaml:"distance"`
}

// ObjectSet is the ordered result of one scan. A new scan replaces the
// previous set; sets are never merged.
type ObjectSet []DetectedObject

func (s ObjectSet) Len() int { return len(s) }

func (s ObjectSet) HasNear() bool {
	for _, o := range s {
		if o.Distance == DistanceNear {
			return true
		}
	}
	return false
}

func (s ObjectSet) Clone() ObjectSet {
	if s == nil {
		return nil
	}
	out := make(ObjectSet, len(s))
	copy(out, s)
	return out
}
