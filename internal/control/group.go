package control

import (
	"context"
)

// Group is one multiroom group: a fixed master and an ordered set of slaves.
// The master reference never changes for the life of the group; promoting a
// different device means tearing this group down and creating a new one.
//
// Membership mutation is expected to be invoked serially per group by the
// owning application; the group does not lock internally.
type Group struct {
	master *Player
	slaves []*Player
}

func (g *Group) Master() *Player { return g.master }

// Slaves returns the slave handles in insertion order.
func (g *Group) Slaves() []*Player {
	out := make([]*Player, len(g.slaves))
	copy(out, g.slaves)
	return out
}

// Members returns the master followed by the slaves.
func (g *Group) Members() []*Player {
	out := make([]*Player, 0, 1+len(g.slaves))
	out = append(out, g.master)
	out = append(out, g.slaves...)
	return out
}

// Size counts the master plus all slaves.
func (g *Group) Size() int { return 1 + len(g.slaves) }

func (g *Group) hasSlave(p *Player) bool {
	for _, s := range g.slaves {
		if s == p {
			return true
		}
	}
	return false
}

// AddSlave records p as a slave of this group. Adding the master itself or a
// handle that is already a slave here is a no-op. A handle that belongs to a
// different group is detached from it first: a device is never a member of
// two groups, and that invariant lives here rather than in every caller.
func (g *Group) AddSlave(p *Player) {
	if p == nil || p == g.master || g.hasSlave(p) {
		return
	}
	if p.group != nil && p.group != g {
		p.group.RemoveSlave(p)
	}
	wasMasterSolo := len(g.slaves) == 0
	g.slaves = append(g.slaves, p)
	p.group = g
	p.notifyChanged()
	if wasMasterSolo {
		// First slave flips the master's derived role from solo to master.
		g.master.notifyChanged()
	}
}

// RemoveSlave detaches p from this group; removing a non-member is a no-op.
// When the last slave leaves, the group is torn down entirely rather than
// left as an empty shell behind a master that would still look grouped.
func (g *Group) RemoveSlave(p *Player) {
	idx := -1
	for i, s := range g.slaves {
		if s == p {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	g.slaves = append(g.slaves[:idx], g.slaves[idx+1:]...)
	p.group = nil
	p.notifyChanged()
	if len(g.slaves) == 0 && g.master.group == g {
		g.master.group = nil
		g.master.notifyChanged()
	}
}

// Disband issues the remote teardown once, then unconditionally clears every
// member's group reference. Local bookkeeping always ends up consistent with
// the intent to leave; the remote error, if any, is returned for the caller
// to surface.
func (g *Group) Disband(ctx context.Context) error {
	var remoteErr error
	if g.master.cmd != nil {
		remoteErr = g.master.cmd.Ungroup(ctx, g.master.address)
	}
	for _, s := range g.slaves {
		s.group = nil
		s.notifyChanged()
	}
	g.slaves = nil
	if g.master.group == g {
		g.master.group = nil
	}
	g.master.notifyChanged()
	return remoteErr
}

// SetVolumeAll shifts every member's volume so that the group's loudest
// member lands on level, preserving the members' relative offsets. Each
// member command is independent; a failure on one member does not roll back
// the others. Per-member failures come back as MemberErrors.
func (g *Group) SetVolumeAll(ctx context.Context, level float64) []MemberError {
	level = clamp01(level)
	delta := level - g.VolumeLevel()
	var failures []MemberError
	for _, m := range g.Members() {
		target := level
		if v := m.State().Volume; v != nil {
			target = clamp01(*v + delta)
		}
		if err := m.SetVolume(ctx, target); err != nil {
			failures = append(failures, MemberError{Address: m.address, Err: err})
		}
	}
	return failures
}

// MuteAll applies the mute flag to every member independently, with the same
// partial-failure semantics as SetVolumeAll.
func (g *Group) MuteAll(ctx context.Context, mute bool) []MemberError {
	var failures []MemberError
	for _, m := range g.Members() {
		if err := m.SetMute(ctx, mute); err != nil {
			failures = append(failures, MemberError{Address: m.address, Err: err})
		}
	}
	return failures
}

// VolumeLevel is the maximum cached volume across members: the group sounds
// as loud as its loudest speaker.
func (g *Group) VolumeLevel() float64 {
	level := 0.0
	for _, m := range g.Members() {
		if v := m.State().Volume; v != nil && *v > level {
			level = *v
		}
	}
	return level
}

// IsMuted reports true only when every member is muted; one live speaker
// makes the group audible.
func (g *Group) IsMuted() bool {
	for _, m := range g.Members() {
		muted := m.State().Muted
		if muted == nil || !*muted {
			return false
		}
	}
	return true
}

// PlayState reads the master's transport state; the master owns the session.
func (g *Group) PlayState() *PlayState { return g.master.State().PlayState }

// Playback passthroughs. Group playback is physically the master's playback.

func (g *Group) Play(ctx context.Context) error     { return g.master.Play(ctx) }
func (g *Group) Pause(ctx context.Context) error    { return g.master.Pause(ctx) }
func (g *Group) Resume(ctx context.Context) error   { return g.master.Resume(ctx) }
func (g *Group) Stop(ctx context.Context) error     { return g.master.Stop(ctx) }
func (g *Group) Next(ctx context.Context) error     { return g.master.Next(ctx) }
func (g *Group) Previous(ctx context.Context) error { return g.master.Previous(ctx) }
