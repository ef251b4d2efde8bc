package testsrc

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const Scheme = "testsrc"

// Params describe the synthetic stream. They are parsed from a URL like
// testsrc://?width=1280&height=720&fps=30&duration=10s&tone=440.
type Params struct {
	Width    int
	Height   int
	FPS      float64
	Duration time.Duration
	ToneHz   float64

	// OpenDelay simulates a slow manifest fetch.
	OpenDelay time.Duration

	// MetadataDelay simulates a slow metadata load after Open returned.
	MetadataDelay time.Duration

	// AutoplayBlocked makes Play fail the way a browser autoplay policy does.
	AutoplayBlocked bool
}

func DefaultParams() Params {
	return Params{
		Width:  1280,
		Height: 720,
		FPS:    30,
		ToneHz: 440,
	}
}

func ParseURL(rawURL string) (Params, error) {
	p := DefaultParams()
	u, err := url.Parse(rawURL)
	if err != nil {
		return p, fmt.Errorf("unable to parse URL '%s': %w", rawURL, err)
	}
	if u.Scheme != Scheme {
		return p, fmt.Errorf("unexpected scheme '%s', expected '%s'", u.Scheme, Scheme)
	}

	q := u.Query()
	parseInt := func(key string, dst *int) error {
		if v := q.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid '%s' value '%s'", key, v)
			}
			*dst = n
		}
		return nil
	}
	parseFloat := func(key string, dst *float64) error {
		if v := q.Get(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 {
				return fmt.Errorf("invalid '%s' value '%s'", key, v)
			}
			*dst = f
		}
		return nil
	}
	parseDuration := func(key string, dst *time.Duration) error {
		if v := q.Get(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d < 0 {
				return fmt.Errorf("invalid '%s' value '%s'", key, v)
			}
			*dst = d
		}
		return nil
	}

	parseBool := func(key string, dst *bool) error {
		if v := q.Get(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid '%s' value '%s'", key, v)
			}
			*dst = b
		}
		return nil
	}

	for _, err := range []error{
		parseInt("width", &p.Width),
		parseInt("height", &p.Height),
		parseFloat("fps", &p.FPS),
		parseFloat("tone", &p.ToneHz),
		parseDuration("duration", &p.Duration),
		parseDuration("open_delay", &p.OpenDelay),
		parseDuration("metadata_delay", &p.MetadataDelay),
		parseBool("autoplay_blocked", &p.AutoplayBlocked),
	} {
		if err != nil {
			return p, err
		}
	}
	return p, nil
}

// FrameIndex is the index of the frame displayed at pos.
func (p Params) FrameIndex(pos time.Duration) int64 {
	if p.FPS <= 0 {
		return 0
	}
	return int64(pos.Seconds() * p.FPS)
}

// FrameTimestamp is the presentation time of the given frame.
func (p Params) FrameTimestamp(idx int64) time.Duration {
	if p.FPS <= 0 {
		return 0
	}
	return time.Duration(float64(idx) / p.FPS * float64(time.Second))
}
