package notify

import (
	"context"
	"strings"
)

type Message struct {
	To      []string
	Subject string
	Body    string
}

// Dispatcher sends a message. Implementations do nothing when To is empty
// and never retry.
type Dispatcher interface {
	Send(ctx context.Context, m Message) error
}

// Recipients splits comma separated address lists, dropping blanks and duplicates.
func Recipients(lists ...string) []string {
	var out []string
	seen := map[string]bool{}
	for _, l := range lists {
		for _, addr := range strings.Split(l, ",") {
			addr = strings.TrimSpace(addr)
			key := strings.ToLower(addr)
			if addr == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, addr)
		}
	}
	return out
}
