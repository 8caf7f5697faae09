package tui

import "time"

// statusTTL is how long a status notice stays visible.
const statusTTL = 6 * time.Second

type clearStatusMsg struct {
	seq int
}
