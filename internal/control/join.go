package control

import (
	"context"
	"encoding/hex"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"
)

// DefaultLegacyFirmware is the firmware generation below which devices cannot
// join over the existing network and need a direct radio link instead.
const DefaultLegacyFirmware = "4.2.8020"

// DefaultPropagationDelay is how long a join is given to propagate before the
// slave's reported role is re-read.
const DefaultPropagationDelay = 5 * time.Second

// JoinOptions tunes the coordinator. Zero values select the defaults.
type JoinOptions struct {
	PropagationDelay time.Duration
	LegacyFirmware   string
}

// JoinCoordinator negotiates admitting one device into another's group:
// protocol compatibility gate, admission-mode selection, dispatch, and
// post-join verification. Local Group membership is only mutated after the
// slave itself confirms the new role.
type JoinCoordinator struct {
	propagationDelay time.Duration
	legacyFirmware   string

	// sleep is replaceable in tests so verification does not actually wait.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewJoinCoordinator(opts JoinOptions) *JoinCoordinator {
	if opts.PropagationDelay <= 0 {
		opts.PropagationDelay = DefaultPropagationDelay
	}
	if opts.LegacyFirmware == "" {
		opts.LegacyFirmware = DefaultLegacyFirmware
	}
	return &JoinCoordinator{
		propagationDelay: opts.PropagationDelay,
		legacyFirmware:   opts.LegacyFirmware,
		sleep:            ctxSleep,
	}
}

// joinMode is the tagged admission variant selected before dispatch.
type joinMode interface{ dispatch(ctx context.Context, c Commander, slaveAddr string) error }

// routerJoin admits the slave over the existing local network by pointing it
// at the master's address.
type routerJoin struct{ masterAddress string }

func (m routerJoin) dispatch(ctx context.Context, c Commander, slaveAddr string) error {
	return c.JoinViaRouter(ctx, slaveAddr, m.masterAddress)
}

// directLinkJoin admits the slave onto the master's own radio network. The
// wire command takes the network name as hex, never raw text.
type directLinkJoin struct {
	ssidHex string
	channel int
}

func (m directLinkJoin) dispatch(ctx context.Context, c Commander, slaveAddr string) error {
	return c.JoinViaDirectLink(ctx, slaveAddr, m.ssidHex, m.channel)
}

// Join runs the full admission protocol for slave into master's group.
// Failures before verification leave group state untouched; a verification
// failure does too, but comes back as a VerificationError so callers can tell
// "command refused" from "command accepted, role never changed".
func (c *JoinCoordinator) Join(ctx context.Context, slave, master *Player) error {
	if err := c.checkCompatibility(slave, master); err != nil {
		return err
	}

	mode := c.selectMode(master)
	if err := mode.dispatch(ctx, slave.cmd, slave.address); err != nil {
		return err
	}

	if err := c.sleep(ctx, c.propagationDelay); err != nil {
		return err
	}
	gi, err := slave.RefreshGroup(ctx)
	if err != nil {
		return &VerificationError{SlaveAddress: slave.address, MasterAddress: master.address, Err: err}
	}
	if gi.Role != RoleSlave || !sameDevice(gi.MasterAddress, master.address) {
		return &VerificationError{
			SlaveAddress:  slave.address,
			MasterAddress: master.address,
			CrossSubnet:   !sameSubnet(slave.address, master.address),
		}
	}

	master.CreateGroup().AddSlave(slave)
	return nil
}

// checkCompatibility fails fast when both sides report a protocol version and
// the major generations differ. Many devices never report one at all; a
// missing version is a warning, not a failure.
func (c *JoinCoordinator) checkCompatibility(slave, master *Player) error {
	mv := master.caps.ProtocolVersion()
	sv := slave.caps.ProtocolVersion()
	if mv == "" || sv == "" {
		slog.Warn("protocol version unknown, attempting join anyway",
			"master", master.address, "masterVersion", mv,
			"slave", slave.address, "slaveVersion", sv)
		return nil
	}
	if majorVersion(mv) != majorVersion(sv) {
		return &IncompatibleVersionError{MasterVersion: mv, SlaveVersion: sv}
	}
	return nil
}

// selectMode picks the admission mechanism from the master's firmware
// generation and capabilities. Router-mediated join is the default; the
// direct radio link is only for pre-threshold firmware, and even then only
// when the master's network name is known; without it there is nothing to
// dial, so we fall back to the router rather than fail.
func (c *JoinCoordinator) selectMode(master *Player) joinMode {
	fw := master.caps.Firmware()
	if fw == "" || !versionLess(fw, c.legacyFirmware) {
		return routerJoin{masterAddress: master.address}
	}
	ssid := master.caps.SSID()
	if ssid == "" {
		return routerJoin{masterAddress: master.address}
	}
	channel := 0
	if ch := master.caps.WifiChannel(); ch != "" {
		if n, err := strconv.Atoi(ch); err == nil {
			channel = n
		}
	}
	return directLinkJoin{ssidHex: hex.EncodeToString([]byte(ssid)), channel: channel}
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func majorVersion(v string) string {
	major, _, _ := strings.Cut(v, ".")
	return major
}

// versionLess compares dotted numeric versions component-wise.
func versionLess(a, b string) bool {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		av, bv := 0, 0
		if i < len(as) {
			av, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bv, _ = strconv.Atoi(bs[i])
		}
		if av != bv {
			return av < bv
		}
	}
	return false
}

func sameDevice(a, b string) bool {
	return a != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// sameSubnet compares /24 prefixes of two IPv4 addresses. When either side is
// not a plain IPv4 address the answer is "assume same" so the cross-subnet
// hint is only given when the pattern is unambiguous.
func sameSubnet(a, b string) bool {
	ipa := net.ParseIP(a)
	ipb := net.ParseIP(b)
	if ipa == nil || ipb == nil {
		return true
	}
	ipa4 := ipa.To4()
	ipb4 := ipb.To4()
	if ipa4 == nil || ipb4 == nil {
		return true
	}
	return ipa4[0] == ipb4[0] && ipa4[1] == ipb4[1] && ipa4[2] == ipb4[2]
}
