package tele

import (
	"context"
	"fmt"

	"github.com/avdberg/p1bridge/helpers"
	"github.com/avdberg/p1bridge/log2"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
)

// Topic layout follows the fleet convention:
// <client>/c connect flag and last will, <client>/w/1s state,
// <client>/w/1e error text.
type transportMqtt struct {
	log  *log2.Log
	m    mqtt.Client
	mopt *mqtt.ClientOptions

	topicPrefix  string
	topicConnect string
	topicState   string
	topicError   string
}

func (self *transportMqtt) Init(ctx context.Context, log *log2.Log, teleConfig Config) error {
	self.log = log
	mqtt.ERROR = log
	mqtt.CRITICAL = log
	mqtt.WARN = log

	if teleConfig.ClientID == "" {
		return errors.NotValidf("tele client_id empty")
	}
	if teleConfig.MqttBroker == "" {
		return errors.NotValidf("tele mqtt_broker empty")
	}
	credFun := func() (string, string) {
		return teleConfig.ClientID, teleConfig.MqttPassword
	}
	self.topicPrefix = teleConfig.ClientID
	self.topicConnect = fmt.Sprintf("%s/c", self.topicPrefix)
	self.topicState = fmt.Sprintf("%s/w/1s", self.topicPrefix)
	self.topicError = fmt.Sprintf("%s/w/1e", self.topicPrefix)
	keepAlive := helpers.IntSecondDefault(teleConfig.KeepaliveSec, 60)
	pingTimeout := helpers.IntSecondDefault(teleConfig.PingTimeoutSec, 30)
	retryInterval := helpers.IntSecondDefault(teleConfig.KeepaliveSec/2, 30)

	self.mopt = mqtt.NewClientOptions().
		AddBroker(teleConfig.MqttBroker).
		SetBinaryWill(self.topicConnect, []byte{byte(State_Disconnect)}, 1, true).
		SetCleanSession(false).
		SetClientID(teleConfig.ClientID).
		SetCredentialsProvider(credFun).
		SetKeepAlive(keepAlive).
		SetPingTimeout(pingTimeout).
		SetOrderMatters(false).
		SetConnectRetryInterval(retryInterval).
		SetOnConnectHandler(self.onConnectHandler).
		SetConnectionLostHandler(self.connectLostHandler).
		SetConnectRetry(true)
	if teleConfig.StorePath != "" {
		self.mopt = self.mopt.SetStore(mqtt.NewFileStore(teleConfig.StorePath)).SetResumeSubs(true)
	}
	self.m = mqtt.NewClient(self.mopt)
	sConnToken := self.m.Connect()
	if sConnToken.Error() != nil {
		self.log.Errorf("tele: mqtt connect err=%v", sConnToken.Error())
	}
	return nil
}

func (self *transportMqtt) CloseTele() {
	self.m.Disconnect(250)
}

func (self *transportMqtt) SendState(payload []byte) bool {
	self.log.Debugf("tele: send state payload=%x", payload)
	self.m.Publish(self.topicState, 1, false, payload)
	return true
}

func (self *transportMqtt) SendError(payload []byte) bool {
	self.m.Publish(self.topicError, 1, false, payload)
	return true
}

func (self *transportMqtt) connectLostHandler(c mqtt.Client, err error) {
	self.log.Infof("tele: mqtt disconnect")
}

func (self *transportMqtt) onConnectHandler(c mqtt.Client) {
	self.log.Infof("tele: mqtt connect")
	c.Publish(self.topicConnect, 1, true, []byte{0x01})
}
