package linkplay

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wiimctl/internal/control"
)

const avTransportEvent = `<?xml version="1.0"?>
<e:propertyset xmlns:e="urn:schemas-upnp-org:event-1-0">
  <e:property>
    <LastChange>&lt;Event xmlns="urn:schemas-upnp-org:metadata-1-0/AVT/"&gt;&lt;InstanceID val="0"&gt;&lt;TransportState val="PAUSED_PLAYBACK"/&gt;&lt;CurrentTrackURI val="http://example/x.flac"/&gt;&lt;/InstanceID&gt;&lt;/Event&gt;</LastChange>
  </e:property>
</e:propertyset>`

const renderingControlEvent = `<?xml version="1.0"?>
<e:propertyset xmlns:e="urn:schemas-upnp-org:event-1-0">
  <e:property>
    <LastChange>&lt;Event xmlns="urn:schemas-upnp-org:metadata-1-0/RCS/"&gt;&lt;InstanceID val="0"&gt;&lt;Volume channel="Master" val="55"/&gt;&lt;Mute channel="Master" val="1"/&gt;&lt;/InstanceID&gt;&lt;/Event&gt;</LastChange>
  </e:property>
</e:propertyset>`

func TestParseEventAVTransport(t *testing.T) {
	t.Parallel()

	fields, err := ParseEvent([]byte(avTransportEvent))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if fields[control.FieldPlayState] != control.PlayStatePaused {
		t.Fatalf("play state: %v", fields[control.FieldPlayState])
	}
	// Track URIs are not a field the push channel is trusted for.
	if len(fields) != 1 {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

func TestParseEventRenderingControl(t *testing.T) {
	t.Parallel()

	fields, err := ParseEvent([]byte(renderingControlEvent))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if fields[control.FieldVolume] != 0.55 {
		t.Fatalf("volume: %v", fields[control.FieldVolume])
	}
	if fields[control.FieldMuted] != true {
		t.Fatalf("muted: %v", fields[control.FieldMuted])
	}
}

func TestParseEventEmptyPropertySet(t *testing.T) {
	t.Parallel()

	fields, err := ParseEvent([]byte(`<?xml version="1.0"?><e:propertyset xmlns:e="urn:schemas-upnp-org:event-1-0"></e:propertyset>`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(fields) != 0 {
		t.Fatalf("fields: %v", fields)
	}
}

func TestListenerDispatchesNotify(t *testing.T) {
	t.Parallel()

	l := NewEventListener()
	var gotFields map[control.Field]any
	var gotAt time.Time
	token := l.Register(func(fields map[control.Field]any, at time.Time) {
		gotFields = fields
		gotAt = at
	})

	srv := httptest.NewServer(http.HandlerFunc(l.handleNotify))
	t.Cleanup(srv.Close)

	req, _ := http.NewRequest("NOTIFY", srv.URL+"/notify/"+token, strings.NewReader(renderingControlEvent))
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	if gotFields[control.FieldVolume] != 0.55 {
		t.Fatalf("fields: %v", gotFields)
	}
	if gotAt.IsZero() {
		t.Fatalf("observation time missing")
	}

	// Unknown tokens are rejected.
	l.Unregister(token)
	req, _ = http.NewRequest("NOTIFY", srv.URL+"/notify/"+token, strings.NewReader(renderingControlEvent))
	resp, err = srv.Client().Do(req)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status after unregister: %d", resp.StatusCode)
	}
}
