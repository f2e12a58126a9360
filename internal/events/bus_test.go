package events

import (
	"testing"
	"time"

	"cvite-license-server/internal/database"
)

func TestPublishReachesTypedAndAllSubscribers(t *testing.T) {
	bus := NewEventBus()

	typed := make(chan Event, 1)
	all := make(chan Event, 1)
	bus.Subscribe(EventLicenseActivity, func(e Event) { typed <- e })
	bus.SubscribeAll(func(e Event) { all <- e })

	bus.Publish(database.LicenseEvent{
		ID:       7,
		ClientID: "client-1",
		Event:    "check_ok",
		IP:       "1.2.3.4",
	})

	for name, ch := range map[string]chan Event{"typed": typed, "all": all} {
		select {
		case e := <-ch:
			if e.Type != EventLicenseActivity {
				t.Errorf("%s subscriber: unexpected type %s", name, e.Type)
			}
			if e.Data["client_id"] != "client-1" {
				t.Errorf("%s subscriber: unexpected payload %+v", name, e.Data)
			}
			if e.Timestamp.IsZero() {
				t.Errorf("%s subscriber: timestamp not set", name)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s subscriber never received the event", name)
		}
	}
}

func TestSubscribeFiltersByType(t *testing.T) {
	bus := NewEventBus()

	got := make(chan Event, 1)
	bus.Subscribe(EventError, func(e Event) { got <- e })

	bus.PublishClientChanged("client-1", "blocked")

	select {
	case e := <-got:
		t.Fatalf("error subscriber received unrelated event %s", e.Type)
	case <-time.After(50 * time.Millisecond):
	}
}
