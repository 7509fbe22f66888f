package control

import (
	"context"
	"log/slog"
	"time"
)

var timeNow = time.Now

// PlayerOptions wires a Player to its collaborators. Commander and Poll are
// required for anything that touches the network; everything else is optional.
type PlayerOptions struct {
	Commander    Commander
	Poll         PollSource
	Capabilities Capabilities
	Sync         SyncOptions
	// OnChange is invoked after every successful mutation: command, refresh,
	// push update, role transition. A panic inside the callback is contained.
	OnChange func(*Player)
	Join     *JoinCoordinator
}

// Player is the live handle for one device: a merged view of its playback
// state, its cached identity, and its place in at most one group.
//
// Role is never stored. It is recomputed from the group reference on every
// read so that membership changes and role can not drift apart.
type Player struct {
	address string

	cmd  Commander
	poll PollSource
	join *JoinCoordinator

	sync     *StateSynchronizer
	caps     Capabilities
	info     DeviceInfo
	onChange func(*Player)

	group        *Group
	reportedRole Role
	available    bool
}

func NewPlayer(address string, opts PlayerOptions) *Player {
	join := opts.Join
	if join == nil {
		join = NewJoinCoordinator(JoinOptions{})
	}
	caps := opts.Capabilities
	if caps == nil {
		caps = Capabilities{}
	}
	return &Player{
		address:   address,
		cmd:       opts.Commander,
		poll:      opts.Poll,
		join:      join,
		sync:      NewStateSynchronizer(opts.Sync),
		caps:      caps,
		onChange:  opts.OnChange,
		available: true,
	}
}

func (p *Player) Address() string            { return p.address }
func (p *Player) Info() DeviceInfo           { return p.info }
func (p *Player) Capabilities() Capabilities { return p.caps }
func (p *Player) Available() bool            { return p.available }
func (p *Player) Group() *Group              { return p.group }

// State is the current merged snapshot across both update channels.
func (p *Player) State() Snapshot { return p.sync.Snapshot() }

// Role derives the handle's role from group membership alone. A handle that
// owns a group with no slaves is deliberately Solo: the empty group object
// persists, but routing and display treat the device as ungrouped.
func (p *Player) Role() Role {
	switch {
	case p.group != nil && p.group.master != p:
		return RoleSlave
	case p.group != nil && len(p.group.slaves) > 0:
		return RoleMaster
	default:
		return RoleSolo
	}
}

// Refresh re-reads device status through the poll source and merges it. A
// failed refresh marks the handle unavailable; no retry happens here.
func (p *Player) Refresh(ctx context.Context) error {
	snap, err := p.poll.Status(ctx, p.address)
	if err != nil {
		p.available = false
		return err
	}
	p.available = true
	p.sync.Update(ChannelPoll, snap.Fields(), timeNow())
	p.notifyChanged()
	return nil
}

// RefreshIdentity re-reads the device's identity record.
func (p *Player) RefreshIdentity(ctx context.Context) error {
	info, err := p.poll.Identity(ctx, p.address)
	if err != nil {
		return err
	}
	p.info = info
	p.notifyChanged()
	return nil
}

// RefreshGroup re-reads the device's own view of its group membership and
// caches the reported role. It does not mutate local Group objects; only the
// join/leave paths do that.
func (p *Player) RefreshGroup(ctx context.Context) (GroupInfo, error) {
	gi, err := p.poll.GroupInfo(ctx, p.address)
	if err != nil {
		return GroupInfo{}, err
	}
	p.reportedRole = gi.Role
	return gi, nil
}

// ReceivePushUpdate feeds an asynchronous partial update from the push
// collaborator into the synchronizer. at must be the observation time, not
// the processing time, so late delivery stays harmless.
func (p *Player) ReceivePushUpdate(fields map[Field]any, at time.Time) {
	if len(fields) == 0 {
		return
	}
	p.sync.Update(ChannelPush, fields, at)
	p.notifyChanged()
}

// CreateGroup makes this handle the master of a new, empty group. Calling it
// again returns the existing group.
func (p *Player) CreateGroup() *Group {
	if p.group != nil && p.group.master == p {
		return p.group
	}
	g := &Group{master: p}
	p.group = g
	return g
}

// JoinGroup admits this handle into the given master's group, negotiating the
// admission mode and verifying the outcome via the JoinCoordinator.
func (p *Player) JoinGroup(ctx context.Context, master *Player) error {
	return p.join.Join(ctx, p, master)
}

// LeaveGroup detaches this handle from its group. On a master it disbands the
// whole group. Local cleanup always happens, even when the remote command
// fails; the error is still returned so the caller knows the device may
// disagree until its next refresh. On a solo handle it is a no-op.
func (p *Player) LeaveGroup(ctx context.Context) error {
	g := p.group
	switch {
	case g == nil:
		return nil
	case g.master == p:
		return g.Disband(ctx)
	default:
		var remoteErr error
		if g.master.cmd != nil {
			remoteErr = g.master.cmd.KickSlave(ctx, g.master.address, p.address)
		}
		g.RemoveSlave(p)
		return remoteErr
	}
}

// Playback transport commands. On a slave these route to the group master;
// the slave's own device never sees them.

func (p *Player) Play(ctx context.Context) error {
	return p.routed(ctx, Commander.Play, map[Field]any{FieldPlayState: PlayStatePlaying})
}

func (p *Player) Pause(ctx context.Context) error {
	return p.routed(ctx, Commander.Pause, map[Field]any{FieldPlayState: PlayStatePaused})
}

func (p *Player) Resume(ctx context.Context) error {
	return p.routed(ctx, Commander.Resume, map[Field]any{FieldPlayState: PlayStatePlaying})
}

func (p *Player) Stop(ctx context.Context) error {
	return p.routed(ctx, Commander.Stop, map[Field]any{FieldPlayState: PlayStateStopped})
}

func (p *Player) Next(ctx context.Context) error {
	return p.routed(ctx, Commander.Next, nil)
}

func (p *Player) Previous(ctx context.Context) error {
	return p.routed(ctx, Commander.Previous, nil)
}

// SetVolume adjusts this device only. Group-wide volume is an explicit Group
// operation; a caller adjusting one speaker never moves the whole group.
func (p *Player) SetVolume(ctx context.Context, level float64) error {
	level = clamp01(level)
	return p.localCommand(ctx, func(ctx context.Context, c Commander, addr string) error {
		return c.SetVolume(ctx, addr, level)
	}, map[Field]any{FieldVolume: level})
}

// SetMute adjusts this device only, like SetVolume.
func (p *Player) SetMute(ctx context.Context, mute bool) error {
	return p.localCommand(ctx, func(ctx context.Context, c Commander, addr string) error {
		return c.SetMute(ctx, addr, mute)
	}, map[Field]any{FieldMuted: mute})
}

func (p *Player) routed(ctx context.Context, send func(Commander, context.Context, string) error, predicted map[Field]any) error {
	target, err := p.routeTarget()
	if err != nil {
		return err
	}
	return target.localCommand(ctx, func(ctx context.Context, c Commander, addr string) error {
		return send(c, ctx, addr)
	}, predicted)
}

// routeTarget resolves which handle a transport command should run against.
// A handle whose device reports the slave role but which has no group
// reference is inconsistent; refusing the command beats guessing.
func (p *Player) routeTarget() (*Player, error) {
	if p.group != nil && p.group.master != p {
		return p.group.master, nil
	}
	if p.reportedRole == RoleSlave {
		return nil, ErrNotLinked
	}
	return p, nil
}

// localCommand writes the predicted outcome into the poll channel before the
// round trip, then dispatches. A later sparse poll response that omits the
// field cannot erase the prediction, by the synchronizer's additive merge.
func (p *Player) localCommand(ctx context.Context, send func(context.Context, Commander, string) error, predicted map[Field]any) error {
	if len(predicted) > 0 {
		p.sync.Update(ChannelPoll, predicted, timeNow())
	}
	if err := send(ctx, p.cmd, p.address); err != nil {
		return err
	}
	p.notifyChanged()
	return nil
}

func (p *Player) notifyChanged() {
	if p.onChange == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("state-changed callback panicked", "device", p.address, "panic", r)
		}
	}()
	p.onChange(p)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
