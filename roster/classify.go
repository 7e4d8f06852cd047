package roster

import "strings"

// Status is the bucket a roster item belongs to.
type Status int

const (
	Selected Status = iota
	Banned
	Prebanned
)

func (s Status) String() string {
	switch s {
	case Banned:
		return "banned"
	case Prebanned:
		return "prebanned"
	default:
		return "selected"
	}
}

// Markers is the set of class tokens on a DOM element.
type Markers map[string]struct{}

// ParseMarkers splits a class attribute into its tokens.
func ParseMarkers(class string) Markers {
	fields := strings.Fields(class)
	m := make(Markers, len(fields))
	for _, f := range fields {
		m[f] = struct{}{}
	}
	return m
}

// Has reports whether token is present.
func (m Markers) Has(token string) bool {
	_, ok := m[token]
	return ok
}

// Classifier maps status markers to a Status. Ban wins over Preban, which
// wins over the default Selected bucket, so every item lands in exactly one.
type Classifier struct {
	BanClass    string
	PrebanClass string
}

// DefaultClassifier matches the current match-history markup.
var DefaultClassifier = Classifier{BanClass: "ban", PrebanClass: "preban-hero"}

// Classify returns the single bucket for the given markers.
func (c Classifier) Classify(m Markers) Status {
	switch {
	case m.Has(c.BanClass):
		return Banned
	case m.Has(c.PrebanClass):
		return Prebanned
	default:
		return Selected
	}
}
