package cheats

import (
	"github.com/hexonaut/foundry/core/vm"
)

// CombinedLogEntry is one line of the executor's unified log stream: an
// emitted event (Event non-nil) or a console.log line (Console set),
// ordered exactly as they occurred during execution.
type CombinedLogEntry struct {
	Event   *vm.Log
	Console string
}

// LogCollector records emitted events and console.log lines in a single
// sequence, in the order they occurred. Its only output, Combined,
// groups them (events first, then console lines), so the interleaving
// itself is not exposed.
type LogCollector struct {
	entries []CombinedLogEntry
}

// NewLogCollector returns an empty collector.
func NewLogCollector() *LogCollector {
	return &LogCollector{}
}

// RecordEvent appends a LOG0-4 emission to the stream.
func (c *LogCollector) RecordEvent(l *vm.Log) {
	c.entries = append(c.entries, CombinedLogEntry{Event: l})
}

// RecordConsole appends a console.log line to the stream.
func (c *LogCollector) RecordConsole(line string) {
	c.entries = append(c.entries, CombinedLogEntry{Console: line})
}

// Combined returns the rendered structured-event stream followed by every
// console.log line, in insertion order within each group, per the
// component design's log collector: recognized LOG* events render first,
// console output is appended after. consoleLogs is accepted for callers
// that only track the Executor's plain-string history; RecordConsole
// already captured the same lines, so it is used only when non-empty and
// c's own console entries are empty (e.g. a collector built standalone).
func (c *LogCollector) Combined(consoleLogs []string) []string {
	var out []string
	for _, e := range c.entries {
		if e.Event != nil {
			if rendered, ok := renderLog(e.Event); ok {
				out = append(out, rendered)
			}
			continue
		}
	}
	hasConsole := false
	for _, e := range c.entries {
		if e.Event == nil {
			out = append(out, e.Console)
			hasConsole = true
		}
	}
	if !hasConsole {
		out = append(out, consoleLogs...)
	}
	return out
}

// loggingStateDB wraps a vm.StateDB and mirrors every AddLog call into a
// LogCollector, so event emission takes part in the same ordered stream
// as console.log without the interpreter needing to know the executor
// exists.
type loggingStateDB struct {
	vm.StateDB
	collector *LogCollector
}

func (l *loggingStateDB) AddLog(log *vm.Log) {
	l.StateDB.AddLog(log)
	l.collector.RecordEvent(log)
}

var _ vm.StateDB = (*loggingStateDB)(nil)

// wrapStateDB is a no-op when statedb is already a *loggingStateDB for
// this collector, so re-wrapping an executor's own state view twice is
// harmless.
func wrapStateDB(statedb vm.StateDB, collector *LogCollector) vm.StateDB {
	if l, ok := statedb.(*loggingStateDB); ok && l.collector == collector {
		return statedb
	}
	return &loggingStateDB{StateDB: statedb, collector: collector}
}
