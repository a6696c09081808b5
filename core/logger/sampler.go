package logger

import (
	"os"
	"strconv"
	"strings"
	"sync"

	coreconfig "github.com/m3rciful/workbot/core/config"
)

// defaultSample lets one high-volume debug record in fifty through.
const defaultSample = "1/50"

type ratioSampler struct {
	mu          sync.Mutex
	numerator   int
	denominator int
	counter     int
}

func newRatioSampler(numerator, denominator int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(numerator, denominator)
	return s
}

// Set configures the sampling ratio. A non-positive side disables sampling,
// so every event passes.
func (s *ratioSampler) Set(numerator, denominator int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if numerator <= 0 || denominator <= 0 {
		numerator, denominator = 0, 0
	} else if numerator > denominator {
		numerator = denominator
	}
	s.numerator = numerator
	s.denominator = denominator
	s.counter = 0
}

// Allow reports whether the current event should pass sampling.
func (s *ratioSampler) Allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.denominator <= 0 || s.numerator <= 0 {
		return true
	}
	s.counter++
	if s.counter > s.denominator {
		s.counter = 1
	}
	return s.counter <= s.numerator
}

// componentSamplers keeps one counter per component so a chatty transport
// does not starve the service loggers of their share.
type componentSamplers struct {
	mu        sync.Mutex
	fallback  [2]int
	overrides map[string][2]int
	samplers  map[string]*ratioSampler
	trace     bool
}

var sampling = newComponentSamplers(nil, false)

func newComponentSamplers(cfg *coreconfig.Config, trace bool) *componentSamplers {
	cs := &componentSamplers{
		overrides: map[string][2]int{},
		samplers:  map[string]*ratioSampler{},
		trace:     trace,
	}
	raw := defaultSample
	if cfg != nil && strings.TrimSpace(cfg.Logging.DebugSample) != "" {
		raw = cfg.Logging.DebugSample
	}
	cs.fallback = ratioOrDefault(raw)
	if cfg != nil {
		for comp, spec := range cfg.Logging.ComponentSample {
			cs.overrides[strings.TrimSpace(comp)] = ratioOrDefault(spec)
		}
	}
	return cs
}

func (cs *componentSamplers) allow(component string) bool {
	if cs.trace {
		return true
	}
	cs.mu.Lock()
	s, ok := cs.samplers[component]
	if !ok {
		ratio, found := cs.overrides[component]
		if !found {
			ratio = cs.fallback
		}
		s = newRatioSampler(ratio[0], ratio[1])
		cs.samplers[component] = s
	}
	cs.mu.Unlock()
	return s.Allow()
}

func configureSampling(cfg *coreconfig.Config) {
	sampling = newComponentSamplers(cfg, detectTraceFlag())
}

// ShouldSample reports whether a high-volume debug record of component
// should be written. TRACE=1 lets everything through.
func ShouldSample(component string) bool {
	return sampling.allow(component)
}

// ratioOrDefault parses spec and falls back to defaultSample on garbage.
// "0" and "off" disable sampling for the component.
func ratioOrDefault(spec string) [2]int {
	switch strings.ToLower(strings.TrimSpace(spec)) {
	case "0", "off", "all":
		return [2]int{0, 0}
	}
	num, den := parseRatioSpec(spec)
	if num <= 0 || den <= 0 {
		num, den = parseRatioSpec(defaultSample)
	}
	return [2]int{num, den}
}

// parseRatioSpec accepts "n/d" or a bare "d" meaning 1/d.
func parseRatioSpec(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, 0
	}
	if num, den, ok := strings.Cut(spec, "/"); ok {
		n, err1 := strconv.Atoi(strings.TrimSpace(num))
		d, err2 := strconv.Atoi(strings.TrimSpace(den))
		if err1 == nil && err2 == nil {
			return n, d
		}
		return 0, 0
	}
	if v, err := strconv.Atoi(spec); err == nil && v > 0 {
		return 1, v
	}
	return 0, 0
}

func detectTraceFlag() bool {
	return isTruthy(os.Getenv("TRACE")) || isTruthy(os.Getenv("LOG_TRACE"))
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
