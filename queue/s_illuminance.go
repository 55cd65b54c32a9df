package queue

import (
	"fmt"
	"github.com/XANi/esphome-tcs34725/project"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
	"strconv"
	"time"
)

type IlluminanceSensor struct {
	device string
	sensor string
	queue  chan Metric
}

func (t *IlluminanceSensor) ProcessMessage(msg mqtt.Message) error {
	metric := Metric{
		Name: "illuminance",
		Labels: map[string]string{
			"device": t.device,
			"sensor": t.sensor,
		},
		Unit: "lx",
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

// NewIlluminanceSensor handles the illuminance entity, always reported in lx
func NewIlluminanceSensor(log *zap.SugaredLogger, node string, e project.Entity, out chan Metric) *IlluminanceSensor {
	s := &IlluminanceSensor{device: node, sensor: e.ObjectID}
	s.queue = out
	return s
}
