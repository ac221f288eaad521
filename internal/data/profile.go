package data

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrUnknownProfile is returned when a spawn names a profile that was never loaded.
var ErrUnknownProfile = errors.New("unknown profile")

// CharacterProfile is the template a Character is spawned from.
type CharacterProfile struct {
	Name          string   `yaml:"name"`
	Life          int      `yaml:"life"`
	LifetimeMS    int      `yaml:"lifetime_ms"` // 0 = lives until killed
	Script        string   `yaml:"script"`      // Lua file under the scripting dir, optional
	Enchants      []string `yaml:"enchants"`    // applied on init
	DeathParticle string   `yaml:"death_particle"`
}

func (p *CharacterProfile) Lifetime() time.Duration {
	return time.Duration(p.LifetimeMS) * time.Millisecond
}

// ParticleProfile is a short-lived effect. After its lifetime it lingers in
// the waiting phase before the slot is released.
type ParticleProfile struct {
	Name       string `yaml:"name"`
	LifetimeMS int    `yaml:"lifetime_ms"`
	LingerMS   int    `yaml:"linger_ms"`
}

func (p *ParticleProfile) Lifetime() time.Duration {
	return time.Duration(p.LifetimeMS) * time.Millisecond
}

func (p *ParticleProfile) Linger() time.Duration {
	return time.Duration(p.LingerMS) * time.Millisecond
}

// EnchantProfile is a timed effect bound to one character.
type EnchantProfile struct {
	Name          string `yaml:"name"`
	DurationMS    int    `yaml:"duration_ms"`
	LifePerSecond int    `yaml:"life_per_second"` // negative drains
	Particle      string `yaml:"particle"`        // attached on init, optional
}

func (p *EnchantProfile) Duration() time.Duration {
	return time.Duration(p.DurationMS) * time.Millisecond
}

type profileFile struct {
	Characters []CharacterProfile `yaml:"characters"`
	Particles  []ParticleProfile  `yaml:"particles"`
	Enchants   []EnchantProfile   `yaml:"enchants"`
}

// ProfileTable provides lookup of entity profiles by name.
type ProfileTable struct {
	characters map[string]*CharacterProfile
	particles  map[string]*ParticleProfile
	enchants   map[string]*EnchantProfile
}

// LoadProfileTable loads profiles.yaml.
func LoadProfileTable(path string) (*ProfileTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	return ParseProfiles(raw)
}

// ParseProfiles decodes and cross-checks a profile document.
func ParseProfiles(raw []byte) (*ProfileTable, error) {
	var f profileFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}

	t := &ProfileTable{
		characters: make(map[string]*CharacterProfile, len(f.Characters)),
		particles:  make(map[string]*ParticleProfile, len(f.Particles)),
		enchants:   make(map[string]*EnchantProfile, len(f.Enchants)),
	}
	for i := range f.Particles {
		p := &f.Particles[i]
		if err := addUnique(t.particles, p.Name, p, "particle"); err != nil {
			return nil, err
		}
	}
	for i := range f.Enchants {
		e := &f.Enchants[i]
		if err := addUnique(t.enchants, e.Name, e, "enchant"); err != nil {
			return nil, err
		}
		if e.Particle != "" && t.particles[e.Particle] == nil {
			return nil, fmt.Errorf("enchant %q: particle %q: %w", e.Name, e.Particle, ErrUnknownProfile)
		}
	}
	for i := range f.Characters {
		c := &f.Characters[i]
		if err := addUnique(t.characters, c.Name, c, "character"); err != nil {
			return nil, err
		}
		for _, name := range c.Enchants {
			if t.enchants[name] == nil {
				return nil, fmt.Errorf("character %q: enchant %q: %w", c.Name, name, ErrUnknownProfile)
			}
		}
		if c.DeathParticle != "" && t.particles[c.DeathParticle] == nil {
			return nil, fmt.Errorf("character %q: particle %q: %w", c.Name, c.DeathParticle, ErrUnknownProfile)
		}
	}
	return t, nil
}

func addUnique[T any](m map[string]*T, name string, v *T, kind string) error {
	if name == "" {
		return fmt.Errorf("%s profile without a name", kind)
	}
	if _, dup := m[name]; dup {
		return fmt.Errorf("duplicate %s profile %q", kind, name)
	}
	m[name] = v
	return nil
}

// Character returns the character profile, or nil if none.
func (t *ProfileTable) Character(name string) *CharacterProfile { return t.characters[name] }

// Particle returns the particle profile, or nil if none.
func (t *ProfileTable) Particle(name string) *ParticleProfile { return t.particles[name] }

// Enchant returns the enchant profile, or nil if none.
func (t *ProfileTable) Enchant(name string) *EnchantProfile { return t.enchants[name] }

// Count returns the total number of profiles loaded.
func (t *ProfileTable) Count() int {
	return len(t.characters) + len(t.particles) + len(t.enchants)
}

// Scripts lists the distinct Lua files referenced by character profiles.
func (t *ProfileTable) Scripts() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range t.characters {
		if c.Script != "" && !seen[c.Script] {
			seen[c.Script] = true
			out = append(out, c.Script)
		}
	}
	return out
}
