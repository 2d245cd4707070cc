// Package ui prints human oriented command output: colored status lines,
// aligned tables and optional desktop notifications. Structured logs go
// through pkg/logger instead.
package ui
