package config

import (
	"fmt"
	"strings"
)

type StorageType string

const (
	MemoryStorage  StorageType = "memory"
	BadgerStorage  StorageType = "badger"
	LevelDBStorage StorageType = "leveldb"
	BoltStorage    StorageType = "bolt"
)

// LogLevel defines the default and per-module log level for the simulator's
// logging.
type LogLevel struct {
	Default string
	Modules [][2]string
}

// Parse parses a string such as "error;xcm=trace" into a LogLevel.
func (l LogLevel) Parse(s string) LogLevel {
	for _, s := range strings.Split(s, ";") {
		s := strings.SplitN(s, "=", 2)
		if len(s) == 1 {
			l.Default = s[0]
		} else {
			l.Modules = append(l.Modules, *(*[2]string)(s))
		}
	}
	return l
}

// SetDefault sets the default log level.
func (l LogLevel) SetDefault(level string) LogLevel {
	l.Default = level
	return l
}

// SetModule sets the log level for a module.
func (l LogLevel) SetModule(module, level string) LogLevel {
	l.Modules = append(l.Modules, [2]string{module, level})
	return l
}

// String convers the log level into a string, for example
// "error;xcm=debug".
func (l LogLevel) String() string {
	s := new(strings.Builder)
	s.WriteString(l.Default)
	for _, m := range l.Modules {
		fmt.Fprintf(s, ";%s=%s", m[0], m[1]) //nolint:rangevarref
	}
	return s.String()
}

var DefaultLogLevels = LogLevel{}.
	SetDefault("error").
	SetModule("sim", "info").
	// SetModule("events", "debug").
	// SetModule("badger", "info").
	SetModule("xcm", "info").
	String()

// TraceLogLevels enables tracing for messaging and the reference runtimes.
var TraceLogLevels = LogLevel{}.
	SetDefault("error").
	SetModule("xcm", "trace").
	SetModule("events", "trace").
	SetModule("hrmp", "trace").
	SetModule("dmp", "trace").
	SetModule("ump", "trace").
	SetModule("ping", "trace").
	String()
