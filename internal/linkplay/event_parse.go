package linkplay

import (
	"bytes"
	"encoding/xml"
	"html"
	"io"
	"strconv"
	"strings"

	"wiimctl/internal/control"
)

// ParseEvent decodes a UPnP event propertyset payload into synchronizer
// fields. LastChange properties are decoded and flattened first; only the
// variables the push channel reliably carries are mapped; everything else
// stays the poll channel's business.
func ParseEvent(payload []byte) (map[control.Field]any, error) {
	flat, err := flattenPropertySet(payload)
	if err != nil {
		return nil, err
	}
	return eventFields(flat), nil
}

func flattenPropertySet(payload []byte) (map[string]string, error) {
	out := map[string]string{}

	dec := xml.NewDecoder(bytes.NewReader(payload))
	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				return out, nil
			}
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if strings.EqualFold(start.Name.Local, "LastChange") {
			var raw string
			if err := dec.DecodeElement(&raw, &start); err != nil {
				return nil, err
			}
			inner := html.UnescapeString(strings.TrimSpace(raw))
			for k, v := range parseLastChange(inner) {
				out[k] = v
			}
		}
	}
}

func parseLastChange(innerXML string) map[string]string {
	out := map[string]string{}
	dec := xml.NewDecoder(strings.NewReader(innerXML))
	var inInstance bool
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "InstanceID" {
				inInstance = true
				continue
			}
			if !inInstance {
				continue
			}
			var val string
			var channel string
			for _, a := range t.Attr {
				switch strings.ToLower(a.Name.Local) {
				case "val":
					val = a.Value
				case "channel":
					channel = a.Value
				}
			}
			if val == "" {
				continue
			}
			key := camelToSnake(t.Name.Local)
			if channel != "" {
				key = key + "_" + strings.ToLower(channel)
			}
			out[key] = val
		case xml.EndElement:
			if t.Name.Local == "InstanceID" {
				inInstance = false
			}
		}
	}
}

// eventFields maps flattened event variables onto the transport-state fields
// the push channel is trusted for.
func eventFields(flat map[string]string) map[control.Field]any {
	out := map[control.Field]any{}

	if ts, ok := flat["transport_state"]; ok {
		switch strings.ToUpper(ts) {
		case "PLAYING":
			out[control.FieldPlayState] = control.PlayStatePlaying
		case "PAUSED_PLAYBACK":
			out[control.FieldPlayState] = control.PlayStatePaused
		case "STOPPED":
			out[control.FieldPlayState] = control.PlayStateStopped
		case "TRANSITIONING":
			out[control.FieldPlayState] = control.PlayStateBuffering
		case "NO_MEDIA_PRESENT":
			out[control.FieldPlayState] = control.PlayStateIdle
		}
	}

	vol, ok := flat["volume_master"]
	if !ok {
		vol = flat["volume"]
	}
	if n, err := strconv.Atoi(vol); err == nil && n >= 0 {
		v := float64(n) / 100
		if v > 1 {
			v = 1
		}
		out[control.FieldVolume] = v
	}

	mute, ok := flat["mute_master"]
	if !ok {
		mute = flat["mute"]
	}
	if mute != "" {
		out[control.FieldMuted] = mute == "1"
	}

	return out
}

func camelToSnake(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := rune(s[i-1])
			if prev >= 'a' && prev <= 'z' {
				b.WriteByte('_')
			}
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
