package config

import (
	"maps"
	"sync"
)

// FlagTracker records which command line flags were set explicitly, so that
// only those override values from the config file or environment.
type FlagTracker struct {
	mu    sync.RWMutex
	flags map[string]bool
}

// NewFlagTracker creates an empty tracker
func NewFlagTracker() *FlagTracker {
	return &FlagTracker{flags: make(map[string]bool)}
}

// NewFlagTrackerWithFlags creates a tracker holding a copy of flags
func NewFlagTrackerWithFlags(flags map[string]bool) *FlagTracker {
	ft := NewFlagTracker()
	maps.Copy(ft.flags, flags)
	return ft
}

// Set marks a flag as explicitly set
func (ft *FlagTracker) Set(flagName string) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.flags[flagName] = true
}

// WasSet reports whether a flag was explicitly set
func (ft *FlagTracker) WasSet(flagName string) bool {
	ft.mu.RLock()
	defer ft.mu.RUnlock()
	return ft.flags[flagName]
}

// AnySet reports whether at least one of the flags was explicitly set
func (ft *FlagTracker) AnySet(flagNames ...string) bool {
	ft.mu.RLock()
	defer ft.mu.RUnlock()
	for _, name := range flagNames {
		if ft.flags[name] {
			return true
		}
	}
	return false
}

// Count returns the number of explicitly set flags
func (ft *FlagTracker) Count() int {
	ft.mu.RLock()
	defer ft.mu.RUnlock()
	return len(ft.flags)
}

// MergeString returns override when flagName was set, base otherwise
func (ft *FlagTracker) MergeString(base, override, flagName string) string {
	if ft.WasSet(flagName) {
		return override
	}
	return base
}

// MergeInt returns override when flagName was set, base otherwise
func (ft *FlagTracker) MergeInt(base, override int, flagName string) int {
	if ft.WasSet(flagName) {
		return override
	}
	return base
}

// MergeBool returns override when flagName was set, base otherwise
func (ft *FlagTracker) MergeBool(base, override bool, flagName string) bool {
	if ft.WasSet(flagName) {
		return override
	}
	return base
}

// MergeFloat64 returns override when flagName was set, base otherwise
func (ft *FlagTracker) MergeFloat64(base, override float64, flagName string) float64 {
	if ft.WasSet(flagName) {
		return override
	}
	return base
}

// MergeStringSlice returns override when flagName was set to a non-empty list
func (ft *FlagTracker) MergeStringSlice(base, override []string, flagName string) []string {
	if ft.WasSet(flagName) && len(override) > 0 {
		return override
	}
	return base
}

// MergeIntPtr returns override when flagName was set and override is non-nil
func (ft *FlagTracker) MergeIntPtr(base, override *int, flagName string) *int {
	if ft.WasSet(flagName) && override != nil {
		return override
	}
	return base
}

// MergeUint64Ptr returns override when flagName was set and override is non-nil
func (ft *FlagTracker) MergeUint64Ptr(base, override *uint64, flagName string) *uint64 {
	if ft.WasSet(flagName) && override != nil {
		return override
	}
	return base
}
