package queue

import (
	"testing"
)

func TestDecodeEvent(t *testing.T) {
	body := `{"bucket":"photos","key":"uploads/u1/j1/a.jpg"}`
	event, err := decodeEvent(&body)
	if err != nil {
		t.Fatalf("decodeEvent: %v", err)
	}
	if event.Bucket != "photos" || event.Key != "uploads/u1/j1/a.jpg" {
		t.Fatalf("event = %+v", event)
	}
}

func TestDecodeEventRejectsBadBodies(t *testing.T) {
	cases := []string{
		``,
		`not json`,
		`{}`,
		`{"bucket":"photos"}`,
		`{"key":"uploads/a.jpg"}`,
	}
	for _, body := range cases {
		b := body
		if _, err := decodeEvent(&b); err == nil {
			t.Fatalf("decodeEvent(%q) accepted", body)
		}
	}
	if _, err := decodeEvent(nil); err == nil {
		t.Fatalf("decodeEvent(nil) accepted")
	}
}
