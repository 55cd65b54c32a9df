package queue

import (
	"encoding/json"
	"fmt"
	"github.com/XANi/esphome-tcs34725/project"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Sink receives decoded readings
type Sink interface {
	WriteMetric(m Metric) error
}

type SinkFunc func(m Metric) error

func (f SinkFunc) WriteMetric(m Metric) error { return f(m) }

type Queue struct {
	client    mqtt.Client
	l         *zap.SugaredLogger
	prefix    string
	sendQueue chan Metric
	sensorMap map[string]Sensor
	// done is closed once every queued metric reached the sink
	done   chan struct{}
	closed bool
	sync.RWMutex
}

type Config struct {
	MQTTAddr string
	Logger   *zap.SugaredLogger
	// ClientID defaults to esphome-tcs34725-<random>
	ClientID        string
	DiscoveryPrefix string
	Sink            Sink
	ExtraLabels     map[string]string
	// Client overrides connection built from MQTTAddr, used in tests
	Client mqtt.Client
}

func New(cfg *Config) (*Queue, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.DiscoveryPrefix == "" {
		cfg.DiscoveryPrefix = "homeassistant"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = clientID("esphome-tcs34725")
	}
	client := cfg.Client
	if client == nil {
		mqttURL, err := url.Parse(cfg.MQTTAddr)
		if err != nil {
			return nil, fmt.Errorf("cannot parse MQTT URL: %w", err)
		}
		p, _ := mqttURL.User.Password()
		opts := mqtt.NewClientOptions().
			AddBroker(cfg.MQTTAddr).
			SetUsername(mqttURL.User.Username()).
			SetPassword(p).
			SetClientID(cfg.ClientID).
			SetKeepAlive(2 * time.Second).
			SetPingTimeout(1 * time.Second)
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			return nil, fmt.Errorf("error connecting to %s: %w", mqttURL.Host, token.Error())
		}
	}
	q := &Queue{
		client:    client,
		l:         cfg.Logger,
		prefix:    cfg.DiscoveryPrefix,
		sendQueue: make(chan Metric, 128),
		sensorMap: map[string]Sensor{},
		done:      make(chan struct{}),
	}
	go func() {
		defer close(q.done)
		for ev := range q.sendQueue {
			for k, v := range cfg.ExtraLabels {
				ev.Labels[k] = v
			}
			if cfg.Sink == nil {
				cfg.Logger.Debugf("%s%v: %f%s", ev.Name, ev.Labels, ev.Value, ev.Unit)
				continue
			}
			if err := cfg.Sink.WriteMetric(ev); err != nil {
				cfg.Logger.Warnf("error writing metric %+v: %s", ev, err)
			}
		}
	}()
	return q, nil
}

// PublishDiscovery announces entities of the node as retained discovery messages
func (q *Queue) PublishDiscovery(node string, entities []project.Entity, version string) error {
	for _, e := range entities {
		payload, err := json.Marshal(Discovery(node, e, version))
		if err != nil {
			return fmt.Errorf("error encoding discovery for %s: %w", e.ObjectID, err)
		}
		topic := DiscoveryTopic(q.prefix, node, e)
		q.l.Debugf("publishing %s", topic)
		token := q.client.Publish(topic, 0, true, payload)
		if token.Wait() && token.Error() != nil {
			return fmt.Errorf("error publishing %s: %w", topic, token.Error())
		}
	}
	return nil
}

// Watch subscribes to state topics of entities and feeds readings into sink
func (q *Queue) Watch(node string, entities []project.Entity) error {
	q.Lock()
	for _, e := range entities {
		topic := StateTopic(node, e)
		q.l.Infof("adding %s sensor under %s", e.ObjectID, topic)
		q.sensorMap[topic] = NewSensor(q.l.Named(e.ObjectID), node, e, q.sendQueue)
	}
	q.Unlock()
	token := q.client.Subscribe(node+"/sensor/#", 0, q.handle)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("error subscribing to %s: %w", node, token.Error())
	}
	return nil
}

func (q *Queue) handle(c mqtt.Client, m mqtt.Message) {
	if !strings.HasSuffix(m.Topic(), "/state") {
		return
	}
	// read lock is held through processing so Close can't close the queue under a send
	q.RLock()
	defer q.RUnlock()
	if q.closed {
		return
	}
	f, ok := q.sensorMap[m.Topic()]
	if !ok {
		q.l.Debugf("no sensor for %s: %s", m.Topic(), string(m.Payload()))
		return
	}
	if err := f.ProcessMessage(m); err != nil {
		q.l.Warnf("could not process message %s: %s: %s", m.Topic(), string(m.Payload()), err)
	}
}

// Close disconnects from the broker and waits for queued metrics to be written
func (q *Queue) Close() {
	if q.client.IsConnected() {
		q.client.Disconnect(250)
	}
	q.Lock()
	if !q.closed {
		q.closed = true
		close(q.sendQueue)
	}
	q.Unlock()
	<-q.done
}
