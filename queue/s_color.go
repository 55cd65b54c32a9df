package queue

import (
	"fmt"
	"github.com/XANi/esphome-tcs34725/project"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
	"strconv"
	"time"
)

// ColorChannelSensor handles red/green/blue/clear channels, reported as percentage of full scale
type ColorChannelSensor struct {
	device string
	sensor string
	queue  chan Metric
}

func (t *ColorChannelSensor) ProcessMessage(msg mqtt.Message) error {
	metric := Metric{
		Name: "color_channel",
		Labels: map[string]string{
			"device": t.device,
			"sensor": t.sensor,
		},
		Unit: "%",
	}
	v, err := strconv.ParseFloat(string(msg.Payload()), 64)
	if err != nil {
		return fmt.Errorf("error parsing[%s]:%s", string(msg.Payload()), err)
	}
	if v < 0 || v > 100 {
		return fmt.Errorf("channel value %f out of 0-100%% range", v)
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

func NewColorChannelSensor(log *zap.SugaredLogger, node string, e project.Entity, out chan Metric) *ColorChannelSensor {
	s := &ColorChannelSensor{device: node, sensor: e.ObjectID}
	s.queue = out
	return s
}
