// Copyright 2023 the pay2order authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package mayqtt implements an MQTT client which receives payment code
// requests from pay2order/cmd/generate and publishes generated images
// to pay2order/ui/code and status to pay2order/ui/status.
package mayqtt

import (
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/manit/pay2order"
	"golang.org/x/net/trace"
)

type PublishRequest struct {
	Topic    string
	Qos      byte
	Retained bool
	Payload  interface{}
}

func mqttLoop(broker string, codeRequests chan *pay2order.CodeRequest, requests <-chan PublishRequest) error {
	tr := trace.New("MQTT", "Loop")
	defer tr.Finish()

	tr.LazyPrintf("Connecting to MQTT broker %s", broker)
	opts := mqtt.NewClientOptions().AddBroker(broker)
	opts.SetClientID("pay2order")
	opts.SetConnectRetry(true)
	opts.OnConnect = func(c mqtt.Client) {
		tr.LazyPrintf("OnConnect, subscribing to pay2order/cmd/generate")
		token := c.Subscribe(
			"pay2order/cmd/generate",
			0, /* qos */
			func(_ mqtt.Client, m mqtt.Message) {
				tr.LazyPrintf("message on topic %s: %q", m.Topic(), string(m.Payload()))
				var cr pay2order.CodeRequest
				if err := json.Unmarshal(m.Payload(), &cr); err != nil {
					log.Printf("error unmarshaling payload: %v", err)
					return
				}
				select {
				case codeRequests <- &cr:
				default:
					// Channel full, code request already pending; drop
				}
			})
		if token.Wait() && token.Error() != nil {
			tr.LazyPrintf("subscription failed! %v", token.Error())
		}
	}
	mqttClient := mqtt.NewClient(opts)
	if token := mqttClient.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connection failed: %v", token.Error())
	}
	tr.LazyPrintf("Connected to MQTT broker %s", broker)

	for r := range requests {
		tr.LazyPrintf("publishing on topic %s", r.Topic)
		// discard Token, MQTT publishing is best-effort
		_ = mqttClient.Publish(r.Topic, r.Qos, r.Retained, r.Payload)
	}
	return nil
}

var publish chan PublishRequest

func MQTT(broker string, codeRequests chan *pay2order.CodeRequest) {
	publish = make(chan PublishRequest)
	go func() {
		if err := mqttLoop(broker, codeRequests, publish); err != nil {
			log.Print(err)
		}
	}()
}

// PublishCode pushes a generated payment code image to the customer
// facing display listening on pay2order/ui/code.
func PublishCode(png []byte) {
	select {
	case publish <- PublishRequest{
		Topic:    "pay2order/ui/code",
		Retained: true,
		Payload:  png,
	}:
	default:
		// drop message if MQTT is not connected
	}
}

var lastStatus string

func Publishf(format string, args ...interface{}) {
	status := fmt.Sprintf(format, args...)
	// Prevent duplicate messages if status has not changed
	if lastStatus == status {
		return
	}
	lastStatus = status
	select {
	case publish <- PublishRequest{
		Topic:    "pay2order/ui/status",
		Retained: true,
		Payload:  []byte(status),
	}:
	default:
		// drop message if MQTT is not connected
	}
}
