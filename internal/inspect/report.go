package inspect

import (
	"sort"
	"time"

	"go.uber.org/atomic"
)

// Finding is one socket address seen on the wire.
type Finding struct {
	Time      time.Time `json:"time" yaml:"time"`
	File      string    `json:"file" yaml:"file"`
	Transport string    `json:"transport" yaml:"transport"`
	Src       string    `json:"src" yaml:"src"`
	Dst       string    `json:"dst" yaml:"dst"`
	Command   string    `json:"command" yaml:"command"`
	Item      string    `json:"item" yaml:"item"`
	SockAddr  string    `json:"sockaddr" yaml:"sockaddr"`
	Family    uint16    `json:"family" yaml:"family"`
	Valid     bool      `json:"valid" yaml:"valid"`
	Multicast bool      `json:"multicast" yaml:"multicast"`
}

// Counters summarizes a scan.
type Counters struct {
	Packets      int64 `json:"packets" yaml:"packets"`
	Matched      int64 `json:"matched" yaml:"matched"`
	Messages     int64 `json:"messages" yaml:"messages"`
	Endpoints    int64 `json:"endpoints" yaml:"endpoints"`
	Invalid      int64 `json:"invalid" yaml:"invalid"`
	DecodeErrors int64 `json:"decode_errors" yaml:"decode_errors"`
	Suppressed   int64 `json:"suppressed_warnings" yaml:"suppressed_warnings"`
}

// Report is the result of scanning one or more captures.
type Report struct {
	Files    []string  `json:"files" yaml:"files"`
	Counters Counters  `json:"counters" yaml:"counters"`
	Findings []Finding `json:"findings" yaml:"findings"`
}

// HasInvalid reports whether any structurally invalid address was seen.
func (r Report) HasInvalid() bool {
	return r.Counters.Invalid > 0
}

// stats are updated concurrently by file workers.
type stats struct {
	packets      atomic.Int64
	matched      atomic.Int64
	messages     atomic.Int64
	endpoints    atomic.Int64
	invalid      atomic.Int64
	decodeErrors atomic.Int64
	suppressed   atomic.Int64
}

func (s *stats) snapshot() Counters {
	return Counters{
		Packets:      s.packets.Load(),
		Matched:      s.matched.Load(),
		Messages:     s.messages.Load(),
		Endpoints:    s.endpoints.Load(),
		Invalid:      s.invalid.Load(),
		DecodeErrors: s.decodeErrors.Load(),
		Suppressed:   s.suppressed.Load(),
	}
}

func sortFindings(f []Finding) {
	sort.SliceStable(f, func(i, j int) bool {
		if !f[i].Time.Equal(f[j].Time) {
			return f[i].Time.Before(f[j].Time)
		}
		return f[i].File < f[j].File
	})
}
