package aerialmap

import "sync"

// errorWindowSize bounds how many recent request outcomes feed the rolling
// error rate of a tile server.
const errorWindowSize = 40

// errorRates keeps a per-server rolling window of request outcomes.
type errorRates struct {
	mu      sync.Mutex
	windows map[string]*errorWindow
}

type errorWindow struct {
	outcomes [errorWindowSize]bool // true marks a failed request
	next     int
	filled   int
}

func newErrorRates() *errorRates {
	return &errorRates{windows: make(map[string]*errorWindow)}
}

func (e *errorRates) Record(server string, failed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	w, ok := e.windows[server]
	if !ok {
		w = &errorWindow{}
		e.windows[server] = w
	}

	w.outcomes[w.next] = failed
	w.next = (w.next + 1) % errorWindowSize
	if w.filled < errorWindowSize {
		w.filled++
	}
}

// Rate returns the fraction of failed requests among the recorded window,
// zero if nothing was recorded yet.
func (e *errorRates) Rate(server string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	w, ok := e.windows[server]
	if !ok || w.filled == 0 {
		return 0
	}

	failures := 0
	for i := 0; i < w.filled; i++ {
		if w.outcomes[i] {
			failures++
		}
	}
	return float64(failures) / float64(w.filled)
}
