// Package core provides the module system foundation for promowatch.
package core

// ModuleID uniquely identifies a module (e.g. "notifier.telegram").
type ModuleID string

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	// ID is the unique module identifier, namespaced by concern
	// (e.g. "source.bridge", "keywords.file", "gateway.http").
	ID ModuleID

	// New returns a fresh, unconfigured instance of the module.
	New func() Module
}

// Module is the minimal interface every promowatch module implements.
// Optional lifecycle behavior is added through the interfaces in lifecycle.go.
type Module interface {
	ModuleInfo() ModuleInfo
}
