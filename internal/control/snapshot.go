package control

// PlayState is the transport state a device reports for its playback session.
type PlayState string

const (
	PlayStatePlaying   PlayState = "playing"
	PlayStatePaused    PlayState = "paused"
	PlayStateIdle      PlayState = "idle"
	PlayStateBuffering PlayState = "buffering"
	PlayStateStopped   PlayState = "stopped"
)

// RepeatMode is the device's repeat setting.
type RepeatMode string

const (
	RepeatOff RepeatMode = "off"
	RepeatOne RepeatMode = "one"
	RepeatAll RepeatMode = "all"
)

// Field names one playback attribute tracked by the StateSynchronizer.
type Field string

const (
	FieldPlayState Field = "play_state"
	FieldVolume    Field = "volume"
	FieldMuted     Field = "muted"
	FieldSource    Field = "source"
	FieldTitle     Field = "title"
	FieldArtist    Field = "artist"
	FieldAlbum     Field = "album"
	FieldPosition  Field = "position"
	FieldDuration  Field = "duration"
	FieldShuffle   Field = "shuffle"
	FieldRepeat    Field = "repeat"
)

// Snapshot is one device's playback state at a point in time. Nil fields are
// unknown, not false/zero: a device that never reported shuffle has Shuffle ==
// nil, and callers must not read that as "shuffle off".
//
// Snapshots are values; a newer snapshot supersedes an older one, nothing is
// mutated in place.
type Snapshot struct {
	PlayState *PlayState
	Volume    *float64 // 0.0..1.0
	Muted     *bool
	Source    *string
	Title     *string
	Artist    *string
	Album     *string
	Position  *int // seconds
	Duration  *int // seconds
	Shuffle   *bool
	Repeat    *RepeatMode
}

// Fields flattens the snapshot into a field map suitable for a channel update.
// Unknown (nil) fields are omitted so they never erase previously seen values.
func (s Snapshot) Fields() map[Field]any {
	out := map[Field]any{}
	if s.PlayState != nil {
		out[FieldPlayState] = *s.PlayState
	}
	if s.Volume != nil {
		out[FieldVolume] = *s.Volume
	}
	if s.Muted != nil {
		out[FieldMuted] = *s.Muted
	}
	if s.Source != nil {
		out[FieldSource] = *s.Source
	}
	if s.Title != nil {
		out[FieldTitle] = *s.Title
	}
	if s.Artist != nil {
		out[FieldArtist] = *s.Artist
	}
	if s.Album != nil {
		out[FieldAlbum] = *s.Album
	}
	if s.Position != nil {
		out[FieldPosition] = *s.Position
	}
	if s.Duration != nil {
		out[FieldDuration] = *s.Duration
	}
	if s.Shuffle != nil {
		out[FieldShuffle] = *s.Shuffle
	}
	if s.Repeat != nil {
		out[FieldRepeat] = *s.Repeat
	}
	return out
}

// snapshotFromFields rebuilds a Snapshot from a resolved field map.
// The position invariant is applied here: negative positions are dropped and a
// known position is clamped to a known positive duration.
func snapshotFromFields(fields map[Field]any) Snapshot {
	var s Snapshot
	for f, v := range fields {
		switch f {
		case FieldPlayState:
			if ps, ok := v.(PlayState); ok {
				s.PlayState = &ps
			}
		case FieldVolume:
			if lv, ok := v.(float64); ok {
				s.Volume = &lv
			}
		case FieldMuted:
			if m, ok := v.(bool); ok {
				s.Muted = &m
			}
		case FieldSource:
			if str, ok := v.(string); ok {
				s.Source = &str
			}
		case FieldTitle:
			if str, ok := v.(string); ok {
				s.Title = &str
			}
		case FieldArtist:
			if str, ok := v.(string); ok {
				s.Artist = &str
			}
		case FieldAlbum:
			if str, ok := v.(string); ok {
				s.Album = &str
			}
		case FieldPosition:
			if n, ok := v.(int); ok && n >= 0 {
				s.Position = &n
			}
		case FieldDuration:
			if n, ok := v.(int); ok && n >= 0 {
				s.Duration = &n
			}
		case FieldShuffle:
			if b, ok := v.(bool); ok {
				s.Shuffle = &b
			}
		case FieldRepeat:
			if r, ok := v.(RepeatMode); ok {
				s.Repeat = &r
			}
		}
	}
	if s.Position != nil && s.Duration != nil && *s.Duration > 0 && *s.Position > *s.Duration {
		clamped := *s.Duration
		s.Position = &clamped
	}
	return s
}
