// Package events defines workflow progress events and the in-process bus
// that fans them out to subscribers.
//
// The bus keeps a bounded per-workflow history so observers that attach
// mid-run can replay recent events before receiving live ones. It is
// created once at process start and lives for the process lifetime; it
// holds no external resources.
package events
