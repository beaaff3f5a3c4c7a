// Package catalog holds the per-tenant set of schedulable professionals and
// services and resolves free-text hints against it.
package catalog

import "strings"

// ProfessionalProfile is one schedulable professional. Read-only inside the
// engine.
type ProfessionalProfile struct {
	Name               string
	Aliases            []string
	Skills             []string
	SlotMinutesDefault int
	CalendarIDs        []string
}

// ServiceDefinition is one bookable service.
type ServiceDefinition struct {
	Name         string
	DurationMin  int
	DefaultSkill string
}

// Catalog is the tenant catalog loaded at the start of each turn.
type Catalog struct {
	Professionals []ProfessionalProfile
	Services      []ServiceDefinition
}

// ResolveProfessional matches a parser hint against the catalog:
// case-insensitive exact or alias match first, then substring containment.
// A hint that matches zero or more than one profile resolves to nil, which
// the orchestrator answers with a clarifying prompt.
func (c *Catalog) ResolveProfessional(hint string) *ProfessionalProfile {
	needle := normalize(hint)
	if c == nil || needle == "" {
		return nil
	}

	for i := range c.Professionals {
		p := &c.Professionals[i]
		if normalize(p.Name) == needle {
			return p
		}
		for _, alias := range p.Aliases {
			if normalize(alias) == needle {
				return p
			}
		}
	}

	var found *ProfessionalProfile
	for i := range c.Professionals {
		p := &c.Professionals[i]
		if !professionalContains(p, needle) {
			continue
		}
		if found != nil {
			return nil
		}
		found = p
	}
	return found
}

// ResolveService applies the same matching policy to service names.
func (c *Catalog) ResolveService(hint string) *ServiceDefinition {
	needle := normalize(hint)
	if c == nil || needle == "" {
		return nil
	}

	for i := range c.Services {
		if normalize(c.Services[i].Name) == needle {
			return &c.Services[i]
		}
	}

	var found *ServiceDefinition
	for i := range c.Services {
		name := normalize(c.Services[i].Name)
		if !strings.Contains(name, needle) && !strings.Contains(needle, name) {
			continue
		}
		if found != nil {
			return nil
		}
		found = &c.Services[i]
	}
	return found
}

// DurationFor picks the slot length for a draft: the service duration when
// known, else the professional's default, else zero.
func DurationFor(service *ServiceDefinition, professional *ProfessionalProfile) int {
	if service != nil && service.DurationMin > 0 {
		return service.DurationMin
	}
	if professional != nil && professional.SlotMinutesDefault > 0 {
		return professional.SlotMinutesDefault
	}
	return 0
}

func professionalContains(p *ProfessionalProfile, needle string) bool {
	if strings.Contains(normalize(p.Name), needle) {
		return true
	}
	for _, alias := range p.Aliases {
		if strings.Contains(normalize(alias), needle) {
			return true
		}
	}
	return false
}

var accentFolder = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "ô", "o", "õ", "o",
	"ú", "u", "ü", "u",
	"ç", "c",
)

func normalize(s string) string {
	return accentFolder.Replace(strings.ToLower(strings.TrimSpace(s)))
}
