package data

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SpawnEntry asks for Count characters of Profile when the game begins.
// With RespawnMS set, each one that is reclaimed comes back after that delay.
type SpawnEntry struct {
	Profile   string `yaml:"profile"`
	Count     int    `yaml:"count"`
	RespawnMS int    `yaml:"respawn_ms"` // 0 = never
}

func (e *SpawnEntry) Respawn() time.Duration {
	return time.Duration(e.RespawnMS) * time.Millisecond
}

// LoadSpawnList loads spawns.yaml and checks every entry against profiles.
func LoadSpawnList(path string, profiles *ProfileTable) ([]SpawnEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spawn list: %w", err)
	}
	return ParseSpawnList(raw, profiles)
}

func ParseSpawnList(raw []byte, profiles *ProfileTable) ([]SpawnEntry, error) {
	var entries []SpawnEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse spawn list: %w", err)
	}
	for i := range entries {
		e := &entries[i]
		if profiles.Character(e.Profile) == nil {
			return nil, fmt.Errorf("spawn %d: %q: %w", i, e.Profile, ErrUnknownProfile)
		}
		if e.Count <= 0 {
			e.Count = 1
		}
	}
	return entries, nil
}
