package i2c

import (
	"fmt"
	"github.com/XANi/esphome-tcs34725/codegen"
	"github.com/XANi/esphome-tcs34725/component"
	"github.com/XANi/esphome-tcs34725/pins"
	"github.com/XANi/esphome-tcs34725/schema"
	"sort"
	"strings"
)

const Domain = "i2c"

var ns = codegen.ESPHomeNS.Namespace("i2c")

var (
	Bus        = ns.Class("I2CBus")
	ArduinoBus = ns.Class("ArduinoI2CBus", Bus, codegen.Component)
	Device     = ns.Class("I2CDevice")
)

// default SDA/SCL per platform
var defaultPins = map[string][2]int{
	pins.ESP32:   {21, 22},
	pins.ESP8266: {4, 5},
	pins.RP2040:  {4, 5},
}

// BusSchema returns bus schema, defaults depend on target platform
func BusSchema(platform string) *schema.Schema {
	p, ok := defaultPins[platform]
	if !ok {
		p = defaultPins[pins.ESP32]
	}
	return component.Schema.ExtendFields(
		schema.GenerateID(ArduinoBus),
		schema.OptionalDefault("sda", p[0], pins.Number),
		schema.OptionalDefault("scl", p[1], pins.Number),
		schema.OptionalDefault("frequency", "50kHz", schema.Frequency),
		schema.OptionalDefault("scan", true, schema.Boolean),
	)
}

type BusConfig struct {
	ID        *codegen.ID
	SDA       *pins.Pin
	SCL       *pins.Pin
	Frequency float64
	Scan      bool
	Component component.Options
}

func BusFromConfig(cfg *schema.Config) (BusConfig, error) {
	b := BusConfig{
		Frequency: cfg.Float("frequency"),
		Scan:      cfg.Bool("scan"),
	}
	var ok bool
	v, _ := cfg.Get("id")
	if b.ID, ok = v.(*codegen.ID); !ok {
		return b, fmt.Errorf("i2c: id missing")
	}
	v, _ = cfg.Get("sda")
	if b.SDA, ok = v.(*pins.Pin); !ok {
		return b, fmt.Errorf("i2c: sda missing")
	}
	v, _ = cfg.Get("scl")
	if b.SCL, ok = v.(*pins.Pin); !ok {
		return b, fmt.Errorf("i2c: scl missing")
	}
	var err error
	b.Component, err = component.FromConfig("i2c", cfg)
	return b, err
}

func BusToCode(p *codegen.Program, b BusConfig) error {
	v, err := p.NewPvariable(b.ID, nil)
	if err != nil {
		return err
	}
	component.Register(p, v, b.Component)
	p.Call(v, "set_sda_pin", codegen.IntLiteral(b.SDA.Number))
	p.Call(v, "set_scl_pin", codegen.IntLiteral(b.SCL.Number))
	p.Call(v, "set_frequency", codegen.Uint32Literal(uint32(b.Frequency)))
	p.Call(v, "set_scan", codegen.BoolLiteral(b.Scan))
	p.AddInclude(`"esphome/components/i2c/i2c.h"`)
	return nil
}

// Address accepts 7 bit device address
var Address = schema.IntRange(0, 0x7F)

// DeviceSchema is extended into every component sitting on I2C bus
func DeviceSchema(defaultAddress int) *schema.Schema {
	return schema.New(
		schema.OptionalDefault("i2c_id", nil, schema.UseID(Bus)),
		schema.OptionalDefault("address", defaultAddress, Address),
	)
}

type DeviceConfig struct {
	Bus     *codegen.ID
	Address int
}

func DeviceFromConfig(cfg *schema.Config) (DeviceConfig, error) {
	v, _ := cfg.Get("i2c_id")
	bus, ok := v.(*codegen.ID)
	if !ok {
		return DeviceConfig{}, fmt.Errorf("i2c_id missing")
	}
	return DeviceConfig{Bus: bus, Address: cfg.Int("address")}, nil
}

// RegisterDevice binds device to its bus
func RegisterDevice(p *codegen.Program, v *codegen.ID, d DeviceConfig) error {
	bus, err := p.GetVariable(d.Bus)
	if err != nil {
		return fmt.Errorf("i2c bus: %w", err)
	}
	p.Call(v, "set_i2c_bus", bus)
	p.Call(v, "set_i2c_address", codegen.HexLiteral(d.Address))
	return nil
}

// DeviceUse is one device occupying an address on a bus
type DeviceUse struct {
	Path   string
	Device DeviceConfig
}

// CheckAddressConflicts fails when two devices share bus and address
func CheckAddressConflicts(uses []DeviceUse) error {
	seen := map[string][]string{}
	var keys []string
	for _, u := range uses {
		k := fmt.Sprintf("%s/0x%02X", u.Device.Bus.Name, u.Device.Address)
		if _, ok := seen[k]; !ok {
			keys = append(keys, k)
		}
		seen[k] = append(seen[k], u.Path)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if len(seen[k]) > 1 {
			parts := strings.SplitN(k, "/", 2)
			return fmt.Errorf("address %s on i2c bus %s is used by more than one device: %s", parts[1], parts[0], strings.Join(seen[k], ", "))
		}
	}
	return nil
}
