package logger

import (
	"sync"
)

// components caches component loggers derived from the global logger.
// Init and SetGlobalLogger do not invalidate entries created earlier, so
// configure logging before the first Get.
var components sync.Map // map[string]*Logger

// Register pins a logger under a component name, replacing any cached one.
func Register(name string, l *Logger) {
	components.Store(name, l)
}

// Get returns the logger for a component, deriving it from the global
// logger on first use.
func Get(name string) *Logger {
	if l, ok := components.Load(name); ok {
		return l.(*Logger)
	}
	l, _ := components.LoadOrStore(name, GetGlobalLogger().WithComponent(name))
	return l.(*Logger)
}

// Forget drops every cached component logger.
func Forget() {
	components.Range(func(k, _ any) bool {
		components.Delete(k)
		return true
	})
}
