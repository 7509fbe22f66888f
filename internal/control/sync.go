package control

import (
	"sync"
	"time"
)

// Channel identifies one of the two independent update paths feeding a
// StateSynchronizer.
type Channel string

const (
	// ChannelPoll carries state the caller asked the device for.
	ChannelPoll Channel = "poll"
	// ChannelPush carries state the device volunteered asynchronously.
	ChannelPush Channel = "push"
)

// DefaultStaleness is the age difference beyond which a channel's preferred
// value is no longer trusted over a fresher value from the other channel.
// This is a tuning value, not a protocol constant; override via SyncOptions.
const DefaultStaleness = 10 * time.Second

// SyncOptions configures field resolution. The zero value is usable:
// NewStateSynchronizer fills in defaults.
type SyncOptions struct {
	// Staleness is the maximum timestamp gap at which the preferred channel
	// still wins a conflict. 0 means DefaultStaleness.
	Staleness time.Duration
	// PushPreferred lists the fields resolved from the push channel when both
	// channels have a value and neither is stale. Fields absent from the set
	// are poll-preferred. Nil means defaultPushPreferred.
	PushPreferred map[Field]bool
}

// defaultPushPreferred: push events reflect transport changes faster than any
// poll interval, so transport-affecting fields trust push. Metadata and source
// are not reliably carried by push events at all, so everything else trusts
// poll.
func defaultPushPreferred() map[Field]bool {
	return map[Field]bool{
		FieldPlayState: true,
		FieldVolume:    true,
		FieldMuted:     true,
	}
}

type fieldEntry struct {
	value any
	at    time.Time
}

// StateSynchronizer merges the poll and push channels of one device into a
// single coherent view. Each channel keeps the latest (value, timestamp) per
// field; resolution is a pure computation at read time, so the two channels
// may race and arrive out of order without corrupting the result.
type StateSynchronizer struct {
	mu   sync.Mutex
	opts SyncOptions
	poll map[Field]fieldEntry
	push map[Field]fieldEntry
}

func NewStateSynchronizer(opts SyncOptions) *StateSynchronizer {
	if opts.Staleness <= 0 {
		opts.Staleness = DefaultStaleness
	}
	if opts.PushPreferred == nil {
		opts.PushPreferred = defaultPushPreferred()
	}
	return &StateSynchronizer{
		opts: opts,
		poll: map[Field]fieldEntry{},
		push: map[Field]fieldEntry{},
	}
}

// Update merges fields into the named channel, stamping each key with at.
// Updates are additive per key: a field omitted from fields keeps whatever the
// channel recorded before, which is what lets a sparse device response coexist
// with an earlier optimistic write.
func (s *StateSynchronizer) Update(ch Channel, fields map[Field]any, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	store := s.poll
	if ch == ChannelPush {
		store = s.push
	}
	for f, v := range fields {
		store[f] = fieldEntry{value: v, at: at}
	}
}

// Merged resolves one value per field known on either channel.
func (s *StateSynchronizer) Merged() map[Field]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := map[Field]any{}
	seen := map[Field]bool{}
	for f := range s.poll {
		seen[f] = true
	}
	for f := range s.push {
		seen[f] = true
	}
	for f := range seen {
		pollE, inPoll := s.poll[f]
		pushE, inPush := s.push[f]
		switch {
		case inPoll && !inPush:
			out[f] = pollE.value
		case inPush && !inPoll:
			out[f] = pushE.value
		default:
			out[f] = s.resolve(f, pollE, pushE)
		}
	}
	return out
}

// Snapshot is Merged rendered as a Snapshot value.
func (s *StateSynchronizer) Snapshot() Snapshot {
	return snapshotFromFields(s.Merged())
}

// resolve picks between two recorded values for the same field. The preferred
// channel wins unless its record is more than Staleness older than the other
// channel's, in which case the fresher record wins regardless of preference.
// A silently dead push subscription must not shadow a live poll forever, and
// vice versa.
func (s *StateSynchronizer) resolve(f Field, pollE, pushE fieldEntry) any {
	pref, other := pollE, pushE
	if s.opts.PushPreferred[f] {
		pref, other = pushE, pollE
	}
	if other.at.Sub(pref.at) > s.opts.Staleness {
		return other.value
	}
	return pref.value
}
