package registry

// Snapshot is the serializable form of a registry.
type Snapshot struct {
	Colleges []College `json:"colleges" yaml:"colleges"`
	Cities   []City    `json:"cities" yaml:"cities"`
}

// Snapshot returns the registry entries in sorted name order.
func (r *Registry) Snapshot() *Snapshot {
	s := &Snapshot{
		Colleges: make([]College, 0, len(r.collegeNames)),
		Cities:   make([]City, 0, len(r.cityNames)),
	}
	for _, n := range r.collegeNames {
		s.Colleges = append(s.Colleges, r.colleges[n])
	}
	for _, n := range r.cityNames {
		s.Cities = append(s.Cities, r.cities[n])
	}
	return s
}

// FromSnapshot rebuilds a registry, re-checking every invariant.
func FromSnapshot(s *Snapshot) (*Registry, error) {
	if s == nil {
		return nil, errInvalidEntry
	}
	return New(s.Colleges, s.Cities)
}
