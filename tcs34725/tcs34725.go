// Package tcs34725 wires configuration of the TCS34725 RGB color sensor into the driver
// component. Register programming, lux and color temperature math live in the driver itself.
package tcs34725

import (
	"github.com/XANi/esphome-tcs34725/codegen"
	"github.com/XANi/esphome-tcs34725/i2c"
	"github.com/XANi/esphome-tcs34725/sensor"
)

const (
	Platform = "tcs34725"

	ActionLEDOn  = "tcs34725.led_on"
	ActionLEDOff = "tcs34725.led_off"

	DefaultAddress        = 0x29
	DefaultUpdateInterval = "60s"
)

// config keys
const (
	ConfRedChannel             = "red_channel"
	ConfGreenChannel           = "green_channel"
	ConfBlueChannel            = "blue_channel"
	ConfClearChannel           = "clear_channel"
	ConfIlluminance            = "illuminance"
	ConfColorTemperature       = "color_temperature"
	ConfIntegrationTime        = "integration_time"
	ConfGain                   = "gain"
	ConfGlassAttenuationFactor = "glass_attenuation_factor"
	ConfLEDPin                 = "led_pin"
	ConfLEDStartEnabled        = "led_start_enabled"
	ConfInterruptPin           = "interrupt_pin"
	ConfHighLevel              = "high_level"
	ConfLowLevel               = "low_level"
)

var ns = codegen.ESPHomeNS.Namespace("tcs34725")

var (
	ComponentClass = ns.Class("TCS34725Component", codegen.PollingComponent, i2c.Device)
	LEDOnAction    = ns.TemplateClass("TCS34725LEDOn", codegen.Action)
	LEDOffAction   = ns.TemplateClass("TCS34725LEDOff", codegen.Action)

	integrationTimeEnum = ns.Enum("TCS34725IntegrationTime")
	gainEnum            = ns.Enum("TCS34725Gain")
)

// IntegrationTime is one of the ADC integration times supported by the chip
type IntegrationTime struct {
	Name string
	// Code is value of the ATIME register
	Code   uint8
	Symbol string
}

func (i IntegrationTime) Expression() codegen.Expression {
	return integrationTimeEnum.Value(i.Symbol)
}

// IntegrationTimes in register order, ATIME = 256 - time/2.4ms
var IntegrationTimes = []IntegrationTime{
	{"2.4ms", 0xFF, "TCS34725_INTEGRATION_TIME_2_4MS"},
	{"24ms", 0xF6, "TCS34725_INTEGRATION_TIME_24MS"},
	{"50ms", 0xEB, "TCS34725_INTEGRATION_TIME_50MS"},
	{"101ms", 0xD5, "TCS34725_INTEGRATION_TIME_101MS"},
	{"120ms", 0xCE, "TCS34725_INTEGRATION_TIME_120MS"},
	{"154ms", 0xC0, "TCS34725_INTEGRATION_TIME_154MS"},
	{"180ms", 0xB5, "TCS34725_INTEGRATION_TIME_180MS"},
	{"199ms", 0xAD, "TCS34725_INTEGRATION_TIME_199MS"},
	{"240ms", 0x9C, "TCS34725_INTEGRATION_TIME_240MS"},
	{"300ms", 0x83, "TCS34725_INTEGRATION_TIME_300MS"},
	{"360ms", 0x6A, "TCS34725_INTEGRATION_TIME_360MS"},
	{"401ms", 0x59, "TCS34725_INTEGRATION_TIME_401MS"},
	{"420ms", 0x51, "TCS34725_INTEGRATION_TIME_420MS"},
	{"480ms", 0x38, "TCS34725_INTEGRATION_TIME_480MS"},
	{"499ms", 0x30, "TCS34725_INTEGRATION_TIME_499MS"},
	{"540ms", 0x1F, "TCS34725_INTEGRATION_TIME_540MS"},
	{"600ms", 0x06, "TCS34725_INTEGRATION_TIME_600MS"},
	{"614ms", 0x00, "TCS34725_INTEGRATION_TIME_614MS"},
}

type Gain struct {
	Name string
	// Code is value of the AGAIN bits of control register
	Code   uint8
	Symbol string
}

func (g Gain) Expression() codegen.Expression {
	return gainEnum.Value(g.Symbol)
}

var Gains = []Gain{
	{"1X", 0x00, "TCS34725_GAIN_1X"},
	{"4X", 0x01, "TCS34725_GAIN_4X"},
	{"16X", 0x02, "TCS34725_GAIN_16X"},
	{"60X", 0x03, "TCS34725_GAIN_60X"},
}

func LookupIntegrationTime(name string) (IntegrationTime, bool) {
	for _, i := range IntegrationTimes {
		if i.Name == name {
			return i, true
		}
	}
	return IntegrationTime{}, false
}

func LookupGain(name string) (Gain, bool) {
	for _, g := range Gains {
		if g.Name == name {
			return g, true
		}
	}
	return Gain{}, false
}

// channel output presets
var (
	colorChannel = sensor.Options{
		Unit:             sensor.UnitPercent,
		Icon:             sensor.IconLightbulb,
		AccuracyDecimals: 1,
		StateClass:       sensor.StateClassMeasurement,
	}
	colorTemperature = sensor.Options{
		Unit:             sensor.UnitKelvin,
		Icon:             sensor.IconThermometer,
		AccuracyDecimals: 1,
		StateClass:       sensor.StateClassMeasurement,
	}
	illuminance = sensor.Options{
		Unit:             sensor.UnitLux,
		AccuracyDecimals: 1,
		DeviceClass:      sensor.DeviceClassIlluminance,
		StateClass:       sensor.StateClassMeasurement,
	}
)

// channel binds config key of a sensor output to the driver setter taking it
type channel struct {
	key    string
	setter string
	opts   sensor.Options
}

// channels in emission order
var channels = []channel{
	{ConfRedChannel, "set_red_sensor", colorChannel},
	{ConfGreenChannel, "set_green_sensor", colorChannel},
	{ConfBlueChannel, "set_blue_sensor", colorChannel},
	{ConfClearChannel, "set_clear_sensor", colorChannel},
	{ConfIlluminance, "set_illuminance_sensor", illuminance},
	{ConfColorTemperature, "set_color_temperature_sensor", colorTemperature},
}
