package queue

import (
	"github.com/XANi/esphome-tcs34725/project"
	"github.com/XANi/esphome-tcs34725/sensor"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
	"time"
)

type Sensor interface {
	ProcessMessage(msg mqtt.Message) error
}

type Metric struct {
	Name   string
	Labels map[string]string
	Unit   string
	Value  float64
	TS     time.Time
}

type DeviceClass string

var DeviceClassIlluminance DeviceClass = sensor.DeviceClassIlluminance

// NewSensor picks metric conversion for entity, by device class first, unit second
func NewSensor(log *zap.SugaredLogger, node string, e project.Entity, out chan Metric) Sensor {
	switch {
	case DeviceClass(e.DeviceClass) == DeviceClassIlluminance:
		return NewIlluminanceSensor(log, node, e, out)
	case e.Unit == sensor.UnitKelvin:
		return NewColorTemperatureSensor(log, node, e, out)
	default:
		return NewColorChannelSensor(log, node, e, out)
	}
}
