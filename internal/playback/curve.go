package playback

import (
	"fmt"
	"strings"

	"github.com/fogleman/ease"
)

var fadeCurves = map[string]ease.Function{
	"linear":       ease.Linear,
	"in-quad":      ease.InQuad,
	"out-quad":     ease.OutQuad,
	"in-out-quad":  ease.InOutQuad,
	"in-cubic":     ease.InCubic,
	"out-cubic":    ease.OutCubic,
	"in-out-cubic": ease.InOutCubic,
	"in-quart":     ease.InQuart,
	"in-out-quart": ease.InOutQuart,
	"in-sine":      ease.InSine,
	"out-sine":     ease.OutSine,
}

// ParseFadeCurve resolves a curve name as used in configuration.
// The empty string selects linear.
func ParseFadeCurve(name string) (ease.Function, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return ease.Linear, nil
	}
	fn, ok := fadeCurves[key]
	if !ok {
		return nil, fmt.Errorf("unknown fade curve: %s", name)
	}
	return fn, nil
}
