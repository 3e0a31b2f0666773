package logger

import (
	"strconv"
	"strings"
	"sync"
)

// ratioSampler lets pass out of every window events through.
// A zero window disables sampling and everything passes.
type ratioSampler struct {
	mu      sync.Mutex
	pass    int
	window  int
	counter int
}

func newRatioSampler(pass, window int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(pass, window)
	return s
}

// Set reconfigures the sampler and restarts the current window.
func (s *ratioSampler) Set(pass, window int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pass <= 0 || window <= 0 {
		s.pass, s.window, s.counter = 0, 0, 0
		return
	}
	if pass > window {
		pass = window
	}
	s.pass = pass
	s.window = window
	s.counter = 0
}

// Allow reports whether the current event should pass sampling.
func (s *ratioSampler) Allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.window <= 0 || s.pass <= 0 {
		return true
	}
	s.counter++
	if s.counter > s.window {
		s.counter = 1
	}
	return s.counter <= s.pass
}

// parseRatioSpec reads "1/50" style specs; a bare "50" means 1/50.
func parseRatioSpec(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, 0
	}
	if strings.Contains(spec, "/") {
		parts := strings.SplitN(spec, "/", 2)
		num, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		den, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 == nil && err2 == nil {
			return num, den
		}
	}
	if v, err := strconv.Atoi(spec); err == nil {
		if v <= 0 {
			return 0, 0
		}
		return 1, v
	}
	return 0, 0
}
