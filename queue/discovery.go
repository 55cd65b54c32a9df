package queue

import (
	"fmt"
	"github.com/XANi/esphome-tcs34725/project"
)

type ESPHomeDiscovery struct {
	// https://www.home-assistant.io/integrations/sensor/#device-class
	DeviceClass DeviceClass `json:"dev_cla,omitempty"`
	Unit        string      `json:"unit_of_meas,omitempty"`
	// https://developers.home-assistant.io/docs/core/entity/sensor/#available-state-classes
	StateClass        string      `json:"stat_cla,omitempty"`
	Name              string      `json:"name"`
	Icon              string      `json:"ic,omitempty"`
	Precision         int         `json:"sug_dsp_prc"`
	StateTopic        string      `json:"stat_t"`
	CommandTopic      string      `json:"cmd_t,omitempty"`
	AvailabilityTopic string      `json:"avty_t"`
	UniqID            string      `json:"uniq_id"`
	Dev               *ESPHomeDev `json:"dev"`
}

type ESPHomeDev struct {
	ID              string     `json:"ids"`
	Name            string     `json:"name"`
	SoftwareVersion string     `json:"sw,omitempty"`
	Model           string     `json:"mdl"`
	Manufacturer    string     `json:"mf"`
	Cns             [][]string `json:"cns,omitempty"`
}

// StateTopic is where the device publishes entity state
func StateTopic(node string, e project.Entity) string {
	return fmt.Sprintf("%s/sensor/%s/state", node, e.ObjectID)
}

// DiscoveryTopic is where discovery config for entity is published
func DiscoveryTopic(prefix string, node string, e project.Entity) string {
	return fmt.Sprintf("%s/sensor/%s/%s/config", prefix, node, e.ObjectID)
}

// Discovery builds Home Assistant discovery payload the way ESPHome device announces its sensors
func Discovery(node string, e project.Entity, version string) ESPHomeDiscovery {
	return ESPHomeDiscovery{
		DeviceClass:       DeviceClass(e.DeviceClass),
		Unit:              e.Unit,
		StateClass:        e.StateClass,
		Name:              e.Name,
		Icon:              e.Icon,
		Precision:         e.AccuracyDecimals,
		StateTopic:        StateTopic(node, e),
		AvailabilityTopic: node + "/status",
		UniqID:            fmt.Sprintf("%s-sensor-%s", node, e.ObjectID),
		Dev: &ESPHomeDev{
			ID:              node,
			Name:            node,
			SoftwareVersion: version,
			Model:           "TCS34725",
			Manufacturer:    "espressif",
		},
	}
}
