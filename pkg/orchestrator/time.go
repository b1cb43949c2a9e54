package orchestrator

import "time"

const timeLayout = time.RFC3339Nano

func parseTimeLayout(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
