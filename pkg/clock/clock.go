// Package clock holds the protected in-game clock. The elapsed time is stored as
// an ecc.Codeword and every read-modify-write goes through a single mutex.
package clock

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/jwebster45206/wired-engine/pkg/ecc"
)

// Time units are 1/16 of a second so hour and minute boundaries are integral.
const (
	UnitsPerSecond = 16
	UnitsPerMinute = 60 * UnitsPerSecond
	UnitsPerHour   = 60 * UnitsPerMinute
	UnitsPerDay    = 24 * UnitsPerHour

	// CycleDays is the number of whole days that fit in the 24-bit payload.
	// Elapsed time wraps after this many days.
	CycleDays  = ecc.MaxPayload / UnitsPerDay
	CycleUnits = CycleDays * UnitsPerDay
)

// At converts a day/hour/minute triple to elapsed time units.
func At(day, hour, minute int) uint32 {
	return uint32(day*UnitsPerDay + hour*UnitsPerHour + minute*UnitsPerMinute)
}

// InDay returns the units elapsed since the most recent midnight.
func InDay(units uint32) uint32 {
	return units % UnitsPerDay
}

// Day returns the zero-based day number.
func Day(units uint32) int {
	return int(units / UnitsPerDay)
}

// Hour returns the hour of day, 0-23.
func Hour(units uint32) int {
	return int(InDay(units) / UnitsPerHour)
}

// Minute returns the minute of the hour, 0-59.
func Minute(units uint32) int {
	return int(InDay(units)%UnitsPerHour) / UnitsPerMinute
}

// Format renders the time of day as HH:MM.
func Format(units uint32) string {
	return fmt.Sprintf("%02d:%02d", Hour(units), Minute(units))
}

// TimeOfDay is a number of units since midnight. Its text form is "HH:MM".
type TimeOfDay uint32

// ParseTimeOfDay parses "HH:MM" (or "HH:MM:SS").
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	limits := []int{23, 59, 59}
	scale := []int{UnitsPerHour, UnitsPerMinute, UnitsPerSecond}
	var units int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
		units += n * scale[i]
	}
	return TimeOfDay(units), nil
}

// Units returns the time of day as raw units.
func (t TimeOfDay) Units() uint32 { return uint32(t) }

func (t TimeOfDay) String() string {
	return Format(uint32(t))
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(text []byte) error {
	v, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Clock serializes access to the protected time value.
type Clock struct {
	mu     sync.Mutex
	word   ecc.Codeword
	logger *slog.Logger
}

// New creates a clock holding the given elapsed time.
func New(units uint32, logger *slog.Logger) *Clock {
	return FromCodeword(ecc.Encode(units%CycleUnits), logger)
}

// FromCodeword creates a clock from a previously stored raw codeword.
func FromCodeword(w ecc.Codeword, logger *slog.Logger) *Clock {
	if logger == nil {
		logger = slog.Default()
	}
	return &Clock{word: w, logger: logger}
}

// Read decodes the current value.
func (c *Clock) Read() ecc.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ecc.Decode(c.word)
}

// Codeword returns the raw protected value for persistence.
func (c *Clock) Codeword() ecc.Codeword {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.word
}

// Store replaces the clock with a freshly encoded value.
func (c *Clock) Store(units uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.word = ecc.Encode(units % CycleUnits)
}

// Restore replaces the clock with a raw codeword without validating it.
func (c *Clock) Restore(w ecc.Codeword) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.word = w
}

// Advance adds delta units and re-encodes. The status describes the value that
// was read before advancing. A DoubleBitDetected read still advances from the
// unreliable payload; re-encoding leaves a clean codeword behind.
func (c *Clock) Advance(delta uint32) (uint32, ecc.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := ecc.Decode(c.word)
	switch res.Status {
	case ecc.DoubleBitDetected:
		c.logger.Warn("Clock corruption detected, advancing from unreliable value",
			"codeword", uint32(c.word), "data", res.Data)
	case ecc.SingleBitCorrected, ecc.OverallParityError:
		c.logger.Debug("Clock codeword repaired", "status", res.Status.String())
	}

	next := (res.Data + delta) % CycleUnits
	c.word = ecc.Encode(next)
	return next, res.Status
}

// Corrupt flips the bits at the given 1-indexed positions of the stored
// codeword. Used by glitch events and tests.
func (c *Clock) Corrupt(positions ...int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range positions {
		c.word = c.word.Flip(p)
	}
}
