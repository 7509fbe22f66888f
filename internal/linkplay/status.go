package linkplay

import (
	"context"
	"encoding/hex"
	"strconv"
	"strings"
	"unicode/utf8"

	"wiimctl/internal/control"
)

// playerStatus is the getPlayerStatusEx payload. Everything is a string on
// the wire, including numbers; metadata is hex-encoded.
type playerStatus struct {
	Status string `json:"status"`
	Vol    string `json:"vol"`
	Mute   string `json:"mute"`
	Curpos string `json:"curpos"`
	Totlen string `json:"totlen"`
	Title  string `json:"Title"`
	Artist string `json:"Artist"`
	Album  string `json:"Album"`
	Mode   string `json:"mode"`
	Loop   string `json:"loop"`
}

// deviceStatus is the getStatusEx payload, trimmed to the fields we read.
type deviceStatus struct {
	DeviceName  string `json:"DeviceName"`
	Project     string `json:"project"`
	Firmware    string `json:"firmware"`
	MAC         string `json:"MAC"`
	UUID        string `json:"uuid"`
	SSID        string `json:"ssid"`
	WifiChannel string `json:"WifiChannel"`
	WmrmVersion string `json:"wmrm_version"`
	Group       string `json:"group"`
	MasterIP    string `json:"master_ip"`
}

type slaveList struct {
	Slaves    int `json:"slaves"`
	SlaveList []struct {
		Name string `json:"name"`
		IP   string `json:"ip"`
	} `json:"slave_list"`
}

// Status implements control.PollSource for playback state.
func (c *Client) Status(ctx context.Context, addr string) (control.Snapshot, error) {
	var ps playerStatus
	if err := c.commandJSON(ctx, addr, "getPlayerStatusEx", &ps); err != nil {
		return control.Snapshot{}, err
	}
	return decodePlayerStatus(ps), nil
}

// Identity implements control.PollSource for the device identity record.
func (c *Client) Identity(ctx context.Context, addr string) (control.DeviceInfo, error) {
	var ds deviceStatus
	if err := c.commandJSON(ctx, addr, "getStatusEx", &ds); err != nil {
		return control.DeviceInfo{}, err
	}
	return control.DeviceInfo{
		Name:     ds.DeviceName,
		Model:    ds.Project,
		Firmware: ds.Firmware,
		MAC:      ds.MAC,
		UUID:     ds.UUID,
	}, nil
}

// Capabilities builds the read-only capability map the core consults for join
// negotiation: firmware generation, multiroom protocol version, and the
// device's own radio network name and channel.
func (c *Client) Capabilities(ctx context.Context, addr string) (control.Capabilities, error) {
	var ds deviceStatus
	if err := c.commandJSON(ctx, addr, "getStatusEx", &ds); err != nil {
		return nil, err
	}
	caps := control.Capabilities{}
	if ds.Firmware != "" {
		caps[control.CapFirmware] = ds.Firmware
	}
	if ds.WmrmVersion != "" {
		caps[control.CapProtocolVersion] = ds.WmrmVersion
	}
	if ds.SSID != "" {
		caps[control.CapSSID] = ds.SSID
	}
	if ds.WifiChannel != "" {
		caps[control.CapWifiChannel] = ds.WifiChannel
	}
	return caps, nil
}

// GroupInfo implements control.PollSource for the device's own view of its
// group. A slave knows only its master; a master is asked for its slave list.
func (c *Client) GroupInfo(ctx context.Context, addr string) (control.GroupInfo, error) {
	var ds deviceStatus
	if err := c.commandJSON(ctx, addr, "getStatusEx", &ds); err != nil {
		return control.GroupInfo{}, err
	}
	if ds.Group == "1" {
		return control.GroupInfo{Role: control.RoleSlave, MasterAddress: ds.MasterIP}, nil
	}

	var sl slaveList
	if err := c.commandJSON(ctx, addr, "multiroom:getSlaveList", &sl); err != nil {
		return control.GroupInfo{}, err
	}
	if sl.Slaves == 0 && len(sl.SlaveList) == 0 {
		return control.GroupInfo{Role: control.RoleSolo}, nil
	}
	gi := control.GroupInfo{Role: control.RoleMaster}
	for _, s := range sl.SlaveList {
		if s.IP != "" {
			gi.SlaveAddresses = append(gi.SlaveAddresses, s.IP)
		}
	}
	return gi, nil
}

func decodePlayerStatus(ps playerStatus) control.Snapshot {
	var snap control.Snapshot

	if st, ok := decodePlayState(ps.Status); ok {
		snap.PlayState = &st
	}
	if n, err := strconv.Atoi(ps.Vol); err == nil {
		v := float64(n) / 100
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		snap.Volume = &v
	}
	if ps.Mute != "" {
		m := ps.Mute == "1"
		snap.Muted = &m
	}
	if title, ok := decodeMetadata(ps.Title); ok {
		snap.Title = &title
	}
	if artist, ok := decodeMetadata(ps.Artist); ok {
		snap.Artist = &artist
	}
	if album, ok := decodeMetadata(ps.Album); ok {
		snap.Album = &album
	}
	if src, ok := decodeSource(ps.Mode); ok {
		snap.Source = &src
	}
	// Positions come in milliseconds. Negative positions mean "unknown" on
	// some firmware and are dropped.
	if ms, err := strconv.Atoi(ps.Totlen); err == nil && ms > 0 {
		secs := ms / 1000
		snap.Duration = &secs
	}
	if ms, err := strconv.Atoi(ps.Curpos); err == nil && ms >= 0 {
		secs := ms / 1000
		if snap.Duration != nil && secs > *snap.Duration {
			secs = *snap.Duration
		}
		snap.Position = &secs
	}
	if shuffle, repeat, ok := decodeLoopMode(ps.Loop); ok {
		snap.Shuffle = &shuffle
		snap.Repeat = &repeat
	}
	return snap
}

func decodePlayState(s string) (control.PlayState, bool) {
	switch strings.ToLower(s) {
	case "play":
		return control.PlayStatePlaying, true
	case "pause":
		return control.PlayStatePaused, true
	case "stop":
		return control.PlayStateStopped, true
	case "load", "loading":
		return control.PlayStateBuffering, true
	case "none", "idle":
		return control.PlayStateIdle, true
	default:
		return "", false
	}
}

// decodeMetadata turns a hex-encoded metadata field into text. Devices report
// "unknown" placeholders (with a firmware typo variant) for absent metadata;
// those read as absent, not as a title.
func decodeMetadata(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	raw, err := hex.DecodeString(s)
	if err == nil && utf8.Valid(raw) {
		s = string(raw)
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown", "unknow", "un_known":
		return "", false
	}
	return s, true
}

// sourceNames maps the numeric playback mode to an input/service identifier.
var sourceNames = map[string]string{
	"1":  "airplay",
	"2":  "dlna",
	"10": "wifi",
	"11": "udisk",
	"16": "tf-card",
	"20": "api",
	"21": "udisk",
	"31": "spotify",
	"32": "tidal",
	"40": "line-in",
	"41": "bluetooth",
	"43": "optical",
	"45": "coaxial",
	"47": "line-in-2",
	"51": "usb-dac",
	"99": "slave",
}

func decodeSource(mode string) (string, bool) {
	src, ok := sourceNames[mode]
	return src, ok
}

// Loop mode packs shuffle and repeat into one number.
const (
	loopRepeatAll        = 0
	loopRepeatOne        = 1
	loopShuffleRepeatAll = 2
	loopShuffleOnce      = 3
	loopNone             = 4
)

func decodeLoopMode(s string) (shuffle bool, repeat control.RepeatMode, ok bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return false, "", false
	}
	switch n {
	case loopRepeatAll:
		return false, control.RepeatAll, true
	case loopRepeatOne:
		return false, control.RepeatOne, true
	case loopShuffleRepeatAll:
		return true, control.RepeatAll, true
	case loopShuffleOnce:
		return true, control.RepeatOff, true
	case loopNone, -1:
		return false, control.RepeatOff, true
	default:
		return false, "", false
	}
}

func encodeLoopMode(shuffle bool, repeat control.RepeatMode) int {
	switch {
	case shuffle && repeat == control.RepeatAll:
		return loopShuffleRepeatAll
	case shuffle:
		return loopShuffleOnce
	case repeat == control.RepeatAll:
		return loopRepeatAll
	case repeat == control.RepeatOne:
		return loopRepeatOne
	default:
		return loopNone
	}
}
