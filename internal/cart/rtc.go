package cart

import "time"

// RTC models the Seiko S-3511 real-time clock some cartridges (notably the
// Pokemon Ruby/Sapphire/Emerald line) carry alongside Flash backup, per
// the game-database lookup's detected backup storage. It is driven
// by the host wall clock at access time rather than ticking on its own
// scheduler event, matching how the chip only latches a snapshot when the
// CPU asks for one.
type RTC struct {
	Present bool
	now     func() time.Time // overridable for deterministic tests

	latched [7]uint8 // year, month, day, weekday, hour, minute, second
	control uint8
}

// NewRTC constructs an RTC using the real wall clock.
func NewRTC(present bool) *RTC {
	return &RTC{Present: present, now: time.Now}
}

func toBCD(v int) uint8 {
	return uint8((v/10)<<4 | v%10)
}

// Latch snapshots the current host time into the register file, as the
// real chip does in response to a "register 2 read" command.
func (r *RTC) Latch() {
	t := r.now().UTC()
	weekday := uint8(t.Weekday())
	r.latched = [7]uint8{
		toBCD(t.Year() % 100),
		toBCD(int(t.Month())),
		toBCD(t.Day()),
		weekday,
		toBCD(t.Hour()),
		toBCD(t.Minute()),
		toBCD(t.Second()),
	}
}

// DateTime returns the latched register file.
func (r *RTC) DateTime() [7]uint8 { return r.latched }

func (r *RTC) Control() uint8     { return r.control }
func (r *RTC) SetControl(v uint8) { r.control = v }
