package mqtt

import (
	"sync"
	"time"
)

// RecordingClient is an in-memory Client. Publishes to topics listed in Fail
// complete with that error.
type RecordingClient struct {
	mu        sync.Mutex
	messages  []Message
	Fail      map[string]error
	BaseTopic string
	Offline   bool
}

func NewRecordingClient(baseTopic string) *RecordingClient {
	return &RecordingClient{BaseTopic: baseTopic}
}

func (c *RecordingClient) Publish(topic string, payload any, qos byte, retain bool, continuation func(error), timeout time.Duration) {
	var text string
	switch p := payload.(type) {
	case string:
		text = p
	case []byte:
		text = string(p)
	}
	c.mu.Lock()
	err := c.Fail[topic]
	if err == nil {
		c.messages = append(c.messages, Message{Topic: topic, Payload: text, Retain: retain})
	}
	c.mu.Unlock()
	continuation(err)
}

func (c *RecordingClient) BridgeStateTopic() string {
	return bridgeStateTopic(c.BaseTopic)
}

func (c *RecordingClient) IsConnected() bool {
	return !c.Offline
}

func (c *RecordingClient) Disconnect(timeout time.Duration) {
}

func (c *RecordingClient) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.messages...)
}

// Last payload published to topic.
func (c *RecordingClient) Last(topic string) (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Topic == topic {
			return c.messages[i], true
		}
	}
	return Message{}, false
}
