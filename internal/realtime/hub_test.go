package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case payload := <-c.send:
		var evt Event
		require.NoError(t, json.Unmarshal(payload, &evt))
		return evt
	default:
		t.Fatal("no event queued")
		return Event{}
	}
}

func TestRoomNames(t *testing.T) {
	assert.Equal(t, "user:u1", UserRoom("u1"))
	assert.Equal(t, "conversation:c1", ConversationRoom("c1"))
	assert.Equal(t, "offer:o1", OfferRoom("o1"))
}

func TestJoinLeave(t *testing.T) {
	hub := NewHub(NewRegistry())
	c := newClient("u1", nil)

	hub.Join("conversation:c1", c)
	assert.Equal(t, 1, hub.RoomSize("conversation:c1"))

	hub.Leave("conversation:c1", c)
	assert.Equal(t, 0, hub.RoomSize("conversation:c1"))
}

func TestPublishFansOutToMembers(t *testing.T) {
	hub := NewHub(NewRegistry())
	a := newClient("u1", nil)
	b := newClient("u2", nil)
	outsider := newClient("u3", nil)

	hub.Join("offer:o1", a)
	hub.Join("offer:o1", b)

	hub.Publish("offer:o1", "negotiation:message", map[string]string{"offer_id": "o1"})

	for _, c := range []*Client{a, b} {
		evt := recvEvent(t, c)
		assert.Equal(t, "negotiation:message", evt.Event)
		assert.NotEmpty(t, evt.Timestamp)
	}
	assert.Empty(t, outsider.send, "non-members receive nothing")
}

func TestPublishOrder(t *testing.T) {
	hub := NewHub(NewRegistry())
	c := newClient("u1", nil)
	hub.Join("conversation:c1", c)

	for i := 0; i < 5; i++ {
		hub.Publish("conversation:c1", "notify:newMessage", map[string]int{"seq": i})
	}

	for i := 0; i < 5; i++ {
		evt := recvEvent(t, c)
		data := evt.Data.(map[string]interface{})
		assert.Equal(t, float64(i), data["seq"])
	}
}

func TestPublishUserReachesAllConnections(t *testing.T) {
	hub := NewHub(NewRegistry())
	phone := newClient("u1", nil)
	laptop := newClient("u1", nil)
	hub.Join(UserRoom("u1"), phone)
	hub.Join(UserRoom("u1"), laptop)

	hub.PublishUser("u1", "notify:newOffer", nil)

	assert.Len(t, phone.send, 1)
	assert.Len(t, laptop.send, 1)
}

func TestLeaveAll(t *testing.T) {
	hub := NewHub(NewRegistry())
	c := newClient("u1", nil)
	hub.Join(UserRoom("u1"), c)
	hub.Join("conversation:c1", c)
	hub.Join("offer:o1", c)

	hub.LeaveAll(c)

	assert.Equal(t, 0, hub.RoomSize(UserRoom("u1")))
	assert.Equal(t, 0, hub.RoomSize("conversation:c1"))
	assert.Equal(t, 0, hub.RoomSize("offer:o1"))
	assert.Empty(t, c.joined)
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	c := newClient("u1", nil)
	payload := []byte(`{}`)
	for i := 0; i < sendBufferSize+10; i++ {
		c.enqueue(payload)
	}
	assert.Len(t, c.send, sendBufferSize, "overflow is dropped, not blocked on")
}
