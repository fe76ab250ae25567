package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWSEvent(t *testing.T) {
	cases := map[string]string{
		TypeNewMessage:       "notify:newMessage",
		TypeNewOffer:         "notify:newOffer",
		TypeOfferAccepted:    "notify:offerAccepted",
		TypeOfferRejected:    "notify:offerRejected",
		TypeNegotiation:      "negotiation:message",
		TypePaymentCreated:   "payment:created",
		TypePaymentCompleted: "payment:completed",
	}
	for ntype, want := range cases {
		assert.Equal(t, want, WSEvent(ntype), ntype)
	}

	assert.Equal(t, "notify:generic", WSEvent("something:else"))
}
