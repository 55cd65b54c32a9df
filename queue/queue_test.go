package queue

import (
	"encoding/json"
	"github.com/XANi/esphome-tcs34725/project"
	"github.com/XANi/esphome-tcs34725/sensor"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"sync"
	"testing"
	"time"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

type fakeToken struct{}

func (fakeToken) Wait() bool                     { return true }
func (fakeToken) WaitTimeout(time.Duration) bool { return true }
func (fakeToken) Done() <-chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}
func (fakeToken) Error() error { return nil }

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeClient struct {
	sync.Mutex
	published    []published
	handlers     map[string]mqtt.MessageHandler
	disconnected bool
}

func (c *fakeClient) IsConnected() bool      { return true }
func (c *fakeClient) IsConnectionOpen() bool { return true }
func (c *fakeClient) Connect() mqtt.Token    { return fakeToken{} }
func (c *fakeClient) Disconnect(uint)        { c.disconnected = true }
func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.Lock()
	defer c.Unlock()
	c.published = append(c.published, published{topic: topic, retained: retained, payload: payload.([]byte)})
	return fakeToken{}
}
func (c *fakeClient) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	c.Lock()
	defer c.Unlock()
	if c.handlers == nil {
		c.handlers = map[string]mqtt.MessageHandler{}
	}
	c.handlers[topic] = callback
	return fakeToken{}
}
func (c *fakeClient) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	return fakeToken{}
}
func (c *fakeClient) Unsubscribe(...string) mqtt.Token          { return fakeToken{} }
func (c *fakeClient) AddRoute(string, mqtt.MessageHandler)      {}
func (c *fakeClient) OptionsReader() mqtt.ClientOptionsReader { return mqtt.ClientOptionsReader{} }

var testEntities = []project.Entity{
	{ObjectID: "red", Name: "Red", Options: sensor.Options{Unit: sensor.UnitPercent, AccuracyDecimals: 1, StateClass: sensor.StateClassMeasurement}},
	{ObjectID: "lux", Name: "Lux", Options: sensor.Options{Unit: sensor.UnitLux, DeviceClass: sensor.DeviceClassIlluminance}},
	{ObjectID: "cct", Name: "CCT", Options: sensor.Options{Unit: sensor.UnitKelvin, Icon: sensor.IconThermometer}},
}

func TestDiscovery(t *testing.T) {
	d := Discovery("node-1", testEntities[1], "1.0")
	assert.Equal(t, DeviceClassIlluminance, d.DeviceClass)
	assert.Equal(t, "node-1/sensor/lux/state", d.StateTopic)
	assert.Equal(t, "node-1/status", d.AvailabilityTopic)
	assert.Equal(t, "node-1-sensor-lux", d.UniqID)
	assert.Equal(t, "homeassistant/sensor/node-1/lux/config", DiscoveryTopic("homeassistant", "node-1", testEntities[1]))

	b, err := json.Marshal(Discovery("node-1", testEntities[0], "1.0"))
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "%", m["unit_of_meas"])
	assert.Equal(t, float64(1), m["sug_dsp_prc"])
	assert.NotContains(t, m, "dev_cla")
}

func TestSensorConversions(t *testing.T) {
	out := make(chan Metric, 4)
	log := zap.NewNop().Sugar()

	s := NewSensor(log, "node-1", testEntities[0], out)
	require.IsType(t, &ColorChannelSensor{}, s)
	require.NoError(t, s.ProcessMessage(&fakeMessage{payload: []byte("42.5")}))
	m := <-out
	assert.Equal(t, "color_channel", m.Name)
	assert.Equal(t, 42.5, m.Value)
	assert.Equal(t, map[string]string{"device": "node-1", "sensor": "red"}, m.Labels)
	assert.Error(t, s.ProcessMessage(&fakeMessage{payload: []byte("142")}))
	assert.Error(t, s.ProcessMessage(&fakeMessage{payload: []byte("nan?")}))

	s = NewSensor(log, "node-1", testEntities[1], out)
	require.IsType(t, &IlluminanceSensor{}, s)
	require.NoError(t, s.ProcessMessage(&fakeMessage{payload: []byte("300")}))
	assert.Equal(t, 300.0, (<-out).Value)

	require.NoError(t, s.ProcessMessage(&fakeMessage{payload: []byte("1.5")}))
	m = <-out
	assert.Equal(t, "illuminance", m.Name)
	assert.Equal(t, "lx", m.Unit)
	assert.Equal(t, 1.5, m.Value)

	s = NewSensor(log, "node-1", testEntities[2], out)
	require.IsType(t, &ColorTemperatureSensor{}, s)
	require.NoError(t, s.ProcessMessage(&fakeMessage{payload: []byte("6500")}))
	assert.Equal(t, 6500.0, (<-out).Value)

	require.NoError(t, s.ProcessMessage(&fakeMessage{payload: []byte("250")}))
	m = <-out
	assert.Equal(t, "color_temperature", m.Name)
	assert.Equal(t, "K", m.Unit)
	assert.Equal(t, 250.0, m.Value)
}

func TestSendTimeout(t *testing.T) {
	out := make(chan Metric)
	s := NewColorChannelSensor(zap.NewNop().Sugar(), "node-1", testEntities[0], out)
	assert.ErrorContains(t, s.ProcessMessage(&fakeMessage{payload: []byte("1")}), "timeout")
}

func TestPublishDiscovery(t *testing.T) {
	c := &fakeClient{}
	q, err := New(&Config{Client: c, DiscoveryPrefix: "ha"})
	require.NoError(t, err)
	require.NoError(t, q.PublishDiscovery("node-1", testEntities, "1.0"))
	require.Len(t, c.published, 3)
	assert.Equal(t, "ha/sensor/node-1/red/config", c.published[0].topic)
	assert.True(t, c.published[0].retained)
	var d ESPHomeDiscovery
	require.NoError(t, json.Unmarshal(c.published[2].payload, &d))
	assert.Equal(t, "node-1/sensor/cct/state", d.StateTopic)
	assert.Equal(t, "TCS34725", d.Dev.Model)
}

func TestWatch(t *testing.T) {
	c := &fakeClient{}
	got := make(chan Metric, 4)
	q, err := New(&Config{
		Client:      c,
		ExtraLabels: map[string]string{"host": "test"},
		Sink:        SinkFunc(func(m Metric) error { got <- m; return nil }),
	})
	require.NoError(t, err)
	require.NoError(t, q.Watch("node-1", testEntities))
	h, ok := c.handlers["node-1/sensor/#"]
	require.True(t, ok)

	h(c, &fakeMessage{topic: "node-1/sensor/lux/state", payload: []byte("12")})
	h(c, &fakeMessage{topic: "node-1/sensor/unknown/state", payload: []byte("1")})
	h(c, &fakeMessage{topic: "node-1/sensor/lux/command", payload: []byte("1")})

	select {
	case m := <-got:
		assert.Equal(t, "illuminance", m.Name)
		assert.Equal(t, 12.0, m.Value)
		assert.Equal(t, "test", m.Labels["host"])
	case <-time.After(time.Second):
		t.Fatal("no metric received")
	}
	select {
	case m := <-got:
		t.Fatalf("unexpected metric %+v", m)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCloseDrainsQueue(t *testing.T) {
	c := &fakeClient{}
	var got []float64
	q, err := New(&Config{
		Client: c,
		Sink:   SinkFunc(func(m Metric) error { got = append(got, m.Value); return nil }),
	})
	require.NoError(t, err)
	require.NoError(t, q.Watch("node-1", testEntities))
	h := c.handlers["node-1/sensor/#"]
	for _, v := range []string{"1", "2", "3"} {
		h(c, &fakeMessage{topic: "node-1/sensor/lux/state", payload: []byte(v)})
	}

	q.Close()
	assert.True(t, c.disconnected)
	select {
	case <-q.done:
	default:
		t.Fatal("sender still running after Close")
	}
	assert.Equal(t, []float64{1, 2, 3}, got)

	// late deliveries and repeated Close are ignored
	assert.NotPanics(t, func() {
		h(c, &fakeMessage{topic: "node-1/sensor/lux/state", payload: []byte("4")})
		q.Close()
	})
	assert.Len(t, got, 3)
}

func TestRandomString(t *testing.T) {
	s := randomString(8)
	assert.Len(t, s, 8)
	for _, c := range s {
		assert.Contains(t, randASCII, string(c))
	}
}

func TestClientID(t *testing.T) {
	a, b := clientID("x"), clientID("x")
	assert.Len(t, a, 10)
	assert.NotEqual(t, a, b)
}
