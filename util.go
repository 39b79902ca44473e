package ethcontract

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration is a non-negative time duration that reads and writes as "250ms" in TOML and JSON
type Duration struct{ d time.Duration }

func MakeDuration(d time.Duration) (Duration, error) {
	if d < time.Duration(0) {
		return Duration{}, fmt.Errorf("cannot make negative time duration: %s", d)
	}
	return Duration{d: d}, nil
}

func ParseDuration(s string) (Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return Duration{}, err
	}
	return MakeDuration(d)
}

func MustMakeDuration(d time.Duration) *Duration {
	rv, err := MakeDuration(d)
	if err != nil {
		panic(err)
	}
	return &rv
}

// Duration returns the value as the standard time.Duration value.
func (d Duration) Duration() time.Duration {
	return d.d
}

// Shorter returns true if and only if d is shorter than od.
func (d Duration) Shorter(od Duration) bool { return d.d < od.d }

func (d Duration) String() string {
	return d.d.String()
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(input []byte) error {
	var txt string
	if err := json.Unmarshal(input, &txt); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(txt))
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.d.String()), nil
}

func (d *Duration) UnmarshalText(input []byte) error {
	pd, err := ParseDuration(string(input))
	if err != nil {
		return err
	}
	*d = pd
	return nil
}
