package monitor

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ansel1/merry/v2"
	"github.com/denisbrodbeck/machineid"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"desklin/lin"
)

// Publisher forwards decoded traffic to another system.
type Publisher interface {
	PublishFrame(f lin.Frame, valid bool)
	PublishErrors(flags lin.ErrorFlags)
	PublishPosition(pos uint16)
	Close() error
}

// FrameMessage is the JSON payload published per frame.
type FrameMessage struct {
	ID       uint8  `json:"id"`
	PID      uint8  `json:"pid"`
	Bytes    string `json:"bytes"`
	Checksum string `json:"checksum"`
	Valid    bool   `json:"valid"`
}

const (
	connectTimeout = 5 * time.Second
	publishTimeout = time.Second
)

// mqttClient is the part of paho.Client the publisher uses.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes frames to <prefix>frames/<id>, error flags to
// <prefix>errors and the desk position to <prefix>position.
type MQTTPublisher struct {
	client mqttClient
	prefix string
}

// ClientOptionsFromURL builds client options from a broker URL. The URL
// path, without the leading slash, is returned as topic prefix.
func ClientOptionsFromURL(brokerURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, "", merry.Wrap(err)
	}
	scheme := u.Scheme
	if scheme == "" || scheme == "mqtt" {
		scheme = "tcp"
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(scheme + "://" + u.Host).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetConnectTimeout(connectTimeout)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	if clientID := u.Query().Get("client-id"); clientID != "" {
		opts.SetClientID(clientID)
	}
	return opts, strings.TrimPrefix(u.Path, "/"), nil
}

// DefaultClientID derives a stable client id from the machine id.
func DefaultClientID() string {
	id, err := machineid.ProtectedID("desklin")
	if err != nil {
		glog.Warningf("machine id unavailable: %v", err)
		return fmt.Sprintf("desklin-%d", time.Now().UnixNano()%100000)
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return "desklin-" + id
}

// NewMQTTPublisher connects to the broker in cfg.
func NewMQTTPublisher(cfg MQTTConfig) (*MQTTPublisher, error) {
	opts, prefix, err := ClientOptionsFromURL(cfg.Broker)
	if err != nil {
		return nil, err
	}
	if cfg.TopicPrefix != "" {
		prefix = cfg.TopicPrefix
	}
	if cfg.ClientID != "" {
		opts.SetClientID(cfg.ClientID)
	} else if opts.ClientID == "" {
		opts.SetClientID(DefaultClientID())
	}

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, merry.Errorf("mqtt connect %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, merry.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}
	glog.Infof("mqtt connected to %s as %s, prefix %q", cfg.Broker, opts.ClientID, prefix)
	return newMQTTPublisher(client, prefix), nil
}

func newMQTTPublisher(client mqttClient, prefix string) *MQTTPublisher {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &MQTTPublisher{client: client, prefix: prefix}
}

// FrameTopic returns the topic frames with logical id are published on.
func (p *MQTTPublisher) FrameTopic(id uint8) string {
	return fmt.Sprintf("%sframes/%02X", p.prefix, id)
}

func (p *MQTTPublisher) publish(topic string, retained bool, payload []byte) {
	if glog.V(2) {
		glog.Infof("PUB %s %s", topic, payload)
	}
	token := p.client.Publish(topic, 0, retained, payload)
	if token.WaitTimeout(publishTimeout) && token.Error() != nil {
		glog.Warningf("publish %s: %v", topic, token.Error())
	}
}

// PublishFrame implements Publisher.
func (p *MQTTPublisher) PublishFrame(f lin.Frame, valid bool) {
	payload, err := json.Marshal(FrameMessage{
		ID:       f.ID(),
		PID:      f.ProtectedID(),
		Bytes:    f.String(),
		Checksum: f.ChecksumVersion().String(),
		Valid:    valid,
	})
	if err != nil {
		glog.Errorf("encode frame: %v", err)
		return
	}
	p.publish(p.FrameTopic(f.ID()), false, payload)
}

// PublishErrors implements Publisher.
func (p *MQTTPublisher) PublishErrors(flags lin.ErrorFlags) {
	p.publish(p.prefix+"errors", false, []byte(flags.String()))
}

// PublishPosition implements Publisher. The position is retained so new
// subscribers see the last one.
func (p *MQTTPublisher) PublishPosition(pos uint16) {
	p.publish(p.prefix+"position", true, []byte(fmt.Sprint(pos)))
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
