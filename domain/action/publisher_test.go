package action

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/soocke/bleedscan-go/domain/bleed"
)

func TestNewPayload_ShapeAndTopic(t *testing.T) {
	ev := bleed.Event{Type: bleed.EventType, Metric: "spread_score", Threshold: 0.001, MinDuration: 1, SmoothSeconds: 5, Peak: 0.004, Start: 3, End: 4.2}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	p := NewPayload("sid-1", "case.mp4", ev, now)
	if p.Variant != "spread" {
		t.Fatalf("expected spread variant, got %s", p.Variant)
	}
	if got := Topic("bleedscan/events/", p); got != "bleedscan/events/spread" {
		t.Fatalf("unexpected topic %s", got)
	}
	body, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(body)
	for _, key := range []string{`"session_id":"sid-1"`, `"source":"case.mp4"`, `"variant":"spread"`, `"event":{"type":"bleed_candidate"`, `"start_sec":3`, `"sent_at":"2024-05-01T11:00:00Z"`} {
		if !strings.Contains(s, key) {
			t.Fatalf("payload missing %s: %s", key, s)
		}
	}
	if NewPayload("", "", bleed.Event{Metric: "other"}, now).Variant != "unknown" {
		t.Fatalf("unknown metric should give unknown variant")
	}
}

type recordingPublisher struct {
	calls int
	err   error
}

func (r *recordingPublisher) Publish(context.Context, string, string, bleed.Event) error {
	r.calls++
	return r.err
}
func (r *recordingPublisher) Close() error { return nil }

func TestPublishAll_AttemptsEveryEvent(t *testing.T) {
	boom := errors.New("boom")
	rp := &recordingPublisher{err: boom}
	err := PublishAll(context.Background(), rp, "s", "src", make([]bleed.Event, 3))
	if !errors.Is(err, boom) || rp.calls != 3 {
		t.Fatalf("expected 3 calls and boom, got %d %v", rp.calls, err)
	}
	if err := PublishAll(context.Background(), NewLogPublisher(nil), "s", "src", make([]bleed.Event, 2)); err != nil {
		t.Fatalf("log publisher: %v", err)
	}
}

func TestNewPayload_VariantFromMetric(t *testing.T) {
	now := time.Unix(0, 0)
	cases := map[string]string{
		"red_ratio":     "ratio",
		"red_expansion": "expansion",
		"spread_score":  "spread",
	}
	for metric, want := range cases {
		if got := NewPayload("s", "src", bleed.Event{Metric: metric}, now).Variant; got != want {
			t.Fatalf("metric %s: expected variant %s, got %s", metric, want, got)
		}
	}
}

func TestNewMQTTPublisher_FailedConnectStopsRetrying(t *testing.T) {
	var client mqtt.Client
	orig := newClient
	newClient = func(o *mqtt.ClientOptions) mqtt.Client {
		client = orig(o)
		return client
	}
	t.Cleanup(func() { newClient = orig })

	p, err := NewMQTTPublisher(MQTTOptions{Broker: "127.0.0.1:1", ClientID: "test", ConnectTimeout: 200 * time.Millisecond}, nil)
	if err == nil || p != nil {
		t.Fatalf("expected connect failure, got %v", err)
	}
	if client == nil {
		t.Fatalf("client was not constructed")
	}
	if client.IsConnected() {
		t.Fatalf("client still retrying after failed connect")
	}
}
