package presets

import "time"

// Preset is a saved multiroom layout: one master and the slaves that should
// follow it, plus the per-device volumes to restore.
type Preset struct {
	Name      string         `json:"name"`
	CreatedAt time.Time      `json:"createdAt"`
	Master    string         `json:"master"`
	Slaves    []string       `json:"slaves"`
	Devices   []PresetDevice `json:"devices,omitempty"`
}

type PresetDevice struct {
	IP     string  `json:"ip"`
	Name   string  `json:"name,omitempty"`
	Volume float64 `json:"volume"`
	Mute   bool    `json:"mute"`
}

type PresetMeta struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}
