package linkplay

import (
	"context"
	"fmt"
	"math"

	"wiimctl/internal/control"
)

// Playback and volume commands, implementing control.Commander.

func (c *Client) Play(ctx context.Context, addr string) error {
	return c.exec(ctx, addr, "setPlayerCmd:play")
}

func (c *Client) Pause(ctx context.Context, addr string) error {
	return c.exec(ctx, addr, "setPlayerCmd:pause")
}

func (c *Client) Resume(ctx context.Context, addr string) error {
	return c.exec(ctx, addr, "setPlayerCmd:resume")
}

func (c *Client) Stop(ctx context.Context, addr string) error {
	return c.exec(ctx, addr, "setPlayerCmd:stop")
}

func (c *Client) Next(ctx context.Context, addr string) error {
	return c.exec(ctx, addr, "setPlayerCmd:next")
}

func (c *Client) Previous(ctx context.Context, addr string) error {
	return c.exec(ctx, addr, "setPlayerCmd:prev")
}

func (c *Client) SetVolume(ctx context.Context, addr string, level float64) error {
	n := int(math.Round(level * 100))
	if n < 0 {
		n = 0
	}
	if n > 100 {
		n = 100
	}
	return c.exec(ctx, addr, fmt.Sprintf("setPlayerCmd:vol:%d", n))
}

func (c *Client) SetMute(ctx context.Context, addr string, mute bool) error {
	flag := 0
	if mute {
		flag = 1
	}
	return c.exec(ctx, addr, fmt.Sprintf("setPlayerCmd:mute:%d", flag))
}

// Seek jumps to an absolute position in the current track.
func (c *Client) Seek(ctx context.Context, addr string, seconds int) error {
	if seconds < 0 {
		seconds = 0
	}
	return c.exec(ctx, addr, fmt.Sprintf("setPlayerCmd:seek:%d", seconds))
}

// SwitchSource selects a device input, e.g. "wifi", "line-in", "bluetooth",
// "optical", "udisk".
func (c *Client) SwitchSource(ctx context.Context, addr, source string) error {
	return c.exec(ctx, addr, "setPlayerCmd:switchmode:"+source)
}

// SetLoopMode applies shuffle and repeat together; the wire protocol encodes
// them as a single numeric mode.
func (c *Client) SetLoopMode(ctx context.Context, addr string, shuffle bool, repeat control.RepeatMode) error {
	return c.exec(ctx, addr, fmt.Sprintf("setPlayerCmd:loopmode:%d", encodeLoopMode(shuffle, repeat)))
}

// Grouping commands.

// JoinViaRouter tells the device to join masterAddr's group over the existing
// LAN.
func (c *Client) JoinViaRouter(ctx context.Context, addr, masterAddr string) error {
	return c.exec(ctx, addr, fmt.Sprintf("ConnectMasterAp:JoinGroupMaster:eth%s:wifi0.0.0.0", masterAddr))
}

// JoinViaDirectLink tells the device to associate with the master's own radio
// network. The SSID travels as hex; the auth fields are fixed because these
// devices cannot secure the direct link.
func (c *Client) JoinViaDirectLink(ctx context.Context, addr, ssidHex string, channel int) error {
	return c.exec(ctx, addr,
		fmt.Sprintf("ConnectMasterAp:ssid=%s:ch=%d:auth=OPEN:encry=NONE:pwd=:chext=0", ssidHex, channel))
}

// Ungroup dissolves the group owned by the device at addr.
func (c *Client) Ungroup(ctx context.Context, addr string) error {
	return c.exec(ctx, addr, "multiroom:Ungroup")
}

// KickSlave removes one slave from the group owned by the device at addr.
func (c *Client) KickSlave(ctx context.Context, addr, slaveAddr string) error {
	return c.exec(ctx, addr, "multiroom:SlaveKickout:"+slaveAddr)
}

// SetSlaveVolume adjusts one slave's volume through its master, for slaves
// that are only reachable over the master's direct link.
func (c *Client) SetSlaveVolume(ctx context.Context, addr, slaveAddr string, level float64) error {
	n := int(math.Round(level * 100))
	if n < 0 {
		n = 0
	}
	if n > 100 {
		n = 100
	}
	return c.exec(ctx, addr, fmt.Sprintf("multiroom:SlaveVolume:%s:%d", slaveAddr, n))
}
