package logging

import "strings"

// Filter decides whether a sink accepts a record.
type Filter func(*Record) bool

// NamespaceFilter accepts records emitted by root or any of its descendants.
func NamespaceFilter(root string) Filter {
	prefix := root + "."
	return func(rec *Record) bool {
		return rec.LoggerName == root || strings.HasPrefix(rec.LoggerName, prefix)
	}
}

// MaxLevelFilter accepts records at or below max. Paired with a sink
// threshold it bounds a sink to a severity band.
func MaxLevelFilter(max Level) Filter {
	return func(rec *Record) bool {
		return rec.Level <= max
	}
}

// ChainFilters accepts a record only when every filter accepts it. Nil
// filters are skipped; an empty chain accepts everything.
func ChainFilters(filters ...Filter) Filter {
	active := make([]Filter, 0, len(filters))
	for _, f := range filters {
		if f != nil {
			active = append(active, f)
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return active[0]
	}
	return func(rec *Record) bool {
		for _, f := range active {
			if !f(rec) {
				return false
			}
		}
		return true
	}
}
