package cmd

import (
	"fmt"
	"strings"

	"github.com/ropes/tally/pkg/traffic"
	log "github.com/sirupsen/logrus"
)

// summaryFields ranks the route tally into numbered log fields,
// "1" being the busiest route.
func summaryFields(m map[string]uint64, topN int) log.Fields {
	f := log.Fields{}
	for i, v := range traffic.TopN(m, topN) {
		f[fmt.Sprintf("%d", i+1)] = fmt.Sprintf("%s -> %d", v.Route, v.C)
	}
	return f
}

// splitList flattens comma separated entries, as env vars deliver lists
// as one string.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
