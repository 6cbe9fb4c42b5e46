package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/deepin-community/fprintd/internal/device"
	"github.com/deepin-community/fprintd/internal/hostfs"
)

// Seed lists the readers to create at startup.
type Seed struct {
	Devices []SeedDevice `yaml:"devices"`
}

type SeedDevice struct {
	device.Spec `yaml:",inline"`
	Enrolled    map[string][]string  `yaml:"enrolled"`
	Claimed     string               `yaml:"claimed"`
	Script      []device.ScriptEntry `yaml:"script"`
}

func LoadSeed(path string) (Seed, error) {
	b, err := hostfs.ReadFile(path)
	if err != nil {
		return Seed{}, err
	}
	var s Seed
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Seed{}, fmt.Errorf("parse seed %s: %w", path, err)
	}
	for i, d := range s.Devices {
		if d.Name == "" {
			return Seed{}, fmt.Errorf("seed %s: device %d has no name", path, i)
		}
		if d.NumEnrollStages == 0 {
			s.Devices[i].NumEnrollStages = 5
		}
		if d.ScanType == "" {
			s.Devices[i].ScanType = "press"
		}
		if err := s.Devices[i].Validate(); err != nil {
			return Seed{}, fmt.Errorf("seed %s: device %q: %w", path, d.Name, err)
		}
	}
	return s, nil
}

// Apply adds the seeded devices to reg in order.
func (s Seed) Apply(reg *device.Registry) ([]device.ID, error) {
	var ids []device.ID
	for _, sd := range s.Devices {
		id, err := reg.AddDevice(sd.Spec)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
		d, err := reg.Device(id)
		if err != nil {
			return ids, err
		}
		for user, fingers := range sd.Enrolled {
			if err := d.SetEnrolledFingers(user, fingers); err != nil {
				return ids, fmt.Errorf("device %q: %w", sd.Name, err)
			}
		}
		if len(sd.Script) > 0 {
			if err := d.SetVerifyScript(sd.Script); err != nil {
				return ids, err
			}
		}
		if sd.Claimed != "" {
			if err := d.SetClaimed(sd.Claimed); err != nil {
				return ids, err
			}
		}
	}
	return ids, nil
}
