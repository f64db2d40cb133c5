package registry

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrUnknownEntity is returned when a college or city is not in the registry.
	ErrUnknownEntity = errors.New("unknown entity")

	errInvalidEntry = errors.New("invalid registry entry")
)

// College is a synthetic institution with its salary profile and home city.
type College struct {
	Name          string `json:"name" yaml:"name"`
	Tier          Tier   `json:"tier" yaml:"tier"`
	MedianSalary  int64  `json:"median_salary" yaml:"median_salary"`
	HighestSalary int64  `json:"highest_salary" yaml:"highest_salary"`
	City          string `json:"city" yaml:"city"`
}

// City is a synthetic location with its tier.
type City struct {
	Name string `json:"name" yaml:"name"`
	Tier Tier   `json:"tier" yaml:"tier"`
}

// Registry is the immutable lookup table of colleges and cities.
// It is safe for concurrent reads.
type Registry struct {
	colleges     map[string]College
	cities       map[string]City
	collegeNames []string
	cityNames    []string
}

// New creates a registry from explicit entries and validates every invariant.
func New(colleges []College, cities []City) (*Registry, error) {
	if len(colleges) == 0 {
		return nil, fmt.Errorf("%w: at least one college required", errInvalidEntry)
	}
	if len(cities) == 0 {
		return nil, fmt.Errorf("%w: at least one city required", errInvalidEntry)
	}

	r := &Registry{
		colleges:     make(map[string]College, len(colleges)),
		cities:       make(map[string]City, len(cities)),
		collegeNames: make([]string, 0, len(colleges)),
		cityNames:    make([]string, 0, len(cities)),
	}

	for _, c := range cities {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: city name required", errInvalidEntry)
		}
		if !c.Tier.Valid() {
			return nil, fmt.Errorf("%w: city %s has invalid tier", errInvalidEntry, c.Name)
		}
		if _, ok := r.cities[c.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate city %s", errInvalidEntry, c.Name)
		}
		r.cities[c.Name] = c
		r.cityNames = append(r.cityNames, c.Name)
	}

	for _, c := range colleges {
		if err := r.validateCollege(c); err != nil {
			return nil, err
		}
		r.colleges[c.Name] = c
		r.collegeNames = append(r.collegeNames, c.Name)
	}

	sort.Strings(r.collegeNames)
	sort.Strings(r.cityNames)

	return r, nil
}

func (r *Registry) validateCollege(c College) error {
	if c.Name == "" {
		return fmt.Errorf("%w: college name required", errInvalidEntry)
	}
	if _, ok := r.colleges[c.Name]; ok {
		return fmt.Errorf("%w: duplicate college %s", errInvalidEntry, c.Name)
	}
	if !c.Tier.Valid() {
		return fmt.Errorf("%w: college %s has invalid tier", errInvalidEntry, c.Name)
	}
	if c.MedianSalary <= 0 {
		return fmt.Errorf("%w: college %s median salary must be positive", errInvalidEntry, c.Name)
	}
	if c.HighestSalary <= c.MedianSalary {
		return fmt.Errorf("%w: college %s highest salary %d not above median %d",
			errInvalidEntry, c.Name, c.HighestSalary, c.MedianSalary)
	}
	if _, ok := r.cities[c.City]; !ok {
		return fmt.Errorf("%w: college %s references city %q", ErrUnknownEntity, c.Name, c.City)
	}
	return nil
}

// College returns the full entry for the named college.
func (r *Registry) College(name string) (College, error) {
	c, ok := r.colleges[name]
	if !ok {
		return College{}, fmt.Errorf("%w: college %q", ErrUnknownEntity, name)
	}
	return c, nil
}

// City returns the full entry for the named city.
func (r *Registry) City(name string) (City, error) {
	c, ok := r.cities[name]
	if !ok {
		return City{}, fmt.Errorf("%w: city %q", ErrUnknownEntity, name)
	}
	return c, nil
}

func (r *Registry) TierOf(college string) (Tier, error) {
	c, err := r.College(college)
	if err != nil {
		return TierUnknown, err
	}
	return c.Tier, nil
}

func (r *Registry) MedianSalary(college string) (int64, error) {
	c, err := r.College(college)
	if err != nil {
		return 0, err
	}
	return c.MedianSalary, nil
}

func (r *Registry) HighestSalary(college string) (int64, error) {
	c, err := r.College(college)
	if err != nil {
		return 0, err
	}
	return c.HighestSalary, nil
}

func (r *Registry) CityOf(college string) (string, error) {
	c, err := r.College(college)
	if err != nil {
		return "", err
	}
	return c.City, nil
}

func (r *Registry) TierOfCity(city string) (Tier, error) {
	c, err := r.City(city)
	if err != nil {
		return TierUnknown, err
	}
	return c.Tier, nil
}

// Colleges returns the college names in sorted order.
func (r *Registry) Colleges() []string {
	out := make([]string, len(r.collegeNames))
	copy(out, r.collegeNames)
	return out
}

// Cities returns the city names in sorted order.
func (r *Registry) Cities() []string {
	out := make([]string, len(r.cityNames))
	copy(out, r.cityNames)
	return out
}

// Len returns the number of colleges.
func (r *Registry) Len() int {
	return len(r.collegeNames)
}
