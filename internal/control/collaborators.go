package control

import "context"

// Role is a device's position in a multiroom group.
type Role string

const (
	RoleSolo   Role = "solo"
	RoleMaster Role = "master"
	RoleSlave  Role = "slave"
)

// DeviceInfo is the cached identity record for one device. All fields are
// best-effort; older firmware omits most of them.
type DeviceInfo struct {
	Name     string
	Model    string
	Firmware string
	MAC      string
	UUID     string
}

// GroupInfo is a device's own report of its group membership.
type GroupInfo struct {
	Role           Role
	MasterAddress  string
	SlaveAddresses []string
}

// Capabilities is the read-only per-device capability map supplied by the
// transport layer. The core only reads it; population and refresh happen
// outside.
type Capabilities map[string]string

// Capability keys the core consults.
const (
	CapFirmware        = "firmware"
	CapProtocolVersion = "protocol_version"
	CapSSID            = "ssid"
	CapWifiChannel     = "wifi_channel"
)

func (c Capabilities) Firmware() string        { return c[CapFirmware] }
func (c Capabilities) ProtocolVersion() string { return c[CapProtocolVersion] }
func (c Capabilities) SSID() string            { return c[CapSSID] }
func (c Capabilities) WifiChannel() string     { return c[CapWifiChannel] }

// Commander dispatches commands to a device address. Implementations own the
// wire format, per-call timeouts, retries and protocol fallbacks; the core
// sees only final outcomes.
type Commander interface {
	Play(ctx context.Context, addr string) error
	Pause(ctx context.Context, addr string) error
	Resume(ctx context.Context, addr string) error
	Stop(ctx context.Context, addr string) error
	Next(ctx context.Context, addr string) error
	Previous(ctx context.Context, addr string) error
	SetVolume(ctx context.Context, addr string, level float64) error
	SetMute(ctx context.Context, addr string, mute bool) error

	// JoinViaRouter instructs the device at addr to join masterAddr's group
	// over the existing local network.
	JoinViaRouter(ctx context.Context, addr, masterAddr string) error
	// JoinViaDirectLink instructs the device at addr to join the master's own
	// radio network. ssidHex is the network name as a hexadecimal byte string;
	// the link is always open/unencrypted, these devices support nothing else.
	JoinViaDirectLink(ctx context.Context, addr, ssidHex string, channel int) error
	// Ungroup tears down the group owned by the device at addr.
	Ungroup(ctx context.Context, addr string) error
	// KickSlave removes slaveAddr from the group owned by the device at addr.
	KickSlave(ctx context.Context, addr, slaveAddr string) error
}

// PollSource reads device state on demand. The caller owns any polling timer.
type PollSource interface {
	Status(ctx context.Context, addr string) (Snapshot, error)
	Identity(ctx context.Context, addr string) (DeviceInfo, error)
	GroupInfo(ctx context.Context, addr string) (GroupInfo, error)
}
