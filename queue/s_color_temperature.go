package queue

import (
	"fmt"
	"github.com/XANi/esphome-tcs34725/project"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
	"strconv"
	"time"
)

type ColorTemperatureSensor struct {
	device string
	sensor string
	queue  chan Metric
}

func (t *ColorTemperatureSensor) ProcessMessage(msg mqtt.Message) error {
	metric := Metric{
		Name: "color_temperature",
		Labels: map[string]string{
			"device": t.device,
			"sensor": t.sensor,
		},
		Unit: "K",
	}
	v, err := strconv.ParseFloat(string(msg.Payload()), 64)
	if err != nil {
		return fmt.Errorf("error parsing[%s]:%s", string(msg.Payload()), err)
	}
	metric.Value = v
	metric.TS = time.Now()
	select {
	case t.queue <- metric:
		return nil
	case <-time.After(time.Second):
		return fmt.Errorf("timeout on send queue")
	}
}

// NewColorTemperatureSensor handles the color_temperature entity, always reported in K
func NewColorTemperatureSensor(log *zap.SugaredLogger, node string, e project.Entity, out chan Metric) *ColorTemperatureSensor {
	s := &ColorTemperatureSensor{device: node, sensor: e.ObjectID}
	s.queue = out
	return s
}
