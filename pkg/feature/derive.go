package feature

import (
	"errors"

	"github.com/mchmarny/credpulse/pkg/registry"
)

// Derived holds the registry attributes resolved for one college.
// City and city tier always come from the college's home city.
type Derived struct {
	College       string
	City          string
	CollegeTier   registry.Tier
	CityTier      registry.Tier
	MedianSalary  int64
	HighestSalary int64
}

// Deriver resolves colleges against a shared read-only registry.
type Deriver struct {
	reg *registry.Registry
}

func NewDeriver(reg *registry.Registry) (*Deriver, error) {
	if reg == nil {
		return nil, errors.New("registry required")
	}
	return &Deriver{reg: reg}, nil
}

// Resolve looks up the college and its home city. Unknown names surface
// registry.ErrUnknownEntity.
func (d *Deriver) Resolve(college string) (*Derived, error) {
	c, err := d.reg.College(college)
	if err != nil {
		return nil, err
	}
	cityTier, err := d.reg.TierOfCity(c.City)
	if err != nil {
		return nil, err
	}
	return &Derived{
		College:       c.Name,
		City:          c.City,
		CollegeTier:   c.Tier,
		CityTier:      cityTier,
		MedianSalary:  c.MedianSalary,
		HighestSalary: c.HighestSalary,
	}, nil
}

// OneHot returns the four tier indicator features.
func (d *Derived) OneHot() map[string]float64 {
	c2, c3 := EncodeTier(d.CollegeTier)
	t2, t3 := EncodeTier(d.CityTier)
	return map[string]float64{
		CollegeTier2: boolFloat(c2),
		CollegeTier3: boolFloat(c3),
		CityTier2:    boolFloat(t2),
		CityTier3:    boolFloat(t3),
	}
}
