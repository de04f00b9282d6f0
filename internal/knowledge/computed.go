package knowledge

import (
	"fmt"
	"time"
)

const (
	dateLayout = "Monday, January 2, 2006"
	timeLayout = "03:04 PM"
)

// computers are the known computed entries, keyed by the name used in the
// data file.
var computers = map[string]func(time.Time) string{
	"date": func(t time.Time) string {
		return "📅 Today's date is " + t.Format(dateLayout)
	},
	"time": func(t time.Time) string {
		return "🕒 The current time is " + t.Format(timeLayout)
	},
}

func computedValue(name string, o options) (Computed, error) {
	render, ok := computers[name]
	if !ok {
		return nil, fmt.Errorf("unknown computed value %q", name)
	}
	now, loc := o.now, o.location
	return func() string {
		return render(now().In(loc))
	}, nil
}
