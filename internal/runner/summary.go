package runner

import "time"

type SourceResult struct {
	Source     string
	Skipped    bool
	Err        error
	Dropped    int
	Changes    int
	Suppressed int
	Sent       int
	Failed     int
}

// Summary describes one run. RunID only correlates log lines; it is never stored.
type Summary struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	Sources  []SourceResult
}

func (s Summary) Changes() int {
	n := 0
	for _, r := range s.Sources {
		n += r.Changes
	}
	return n
}

func (s Summary) Sent() int {
	n := 0
	for _, r := range s.Sources {
		n += r.Sent
	}
	return n
}

func (s Summary) Skipped() []string {
	var out []string
	for _, r := range s.Sources {
		if r.Skipped {
			out = append(out, r.Source)
		}
	}
	return out
}

func (s Summary) result() string {
	for _, r := range s.Sources {
		if r.Skipped || r.Err != nil || r.Failed > 0 {
			return "partial"
		}
	}
	return "ok"
}
