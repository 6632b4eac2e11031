// Package domain holds the sentinel errors shared by the playground packages.
//
// Errors are compared with errors.Is; callers wrap them with fmt.Errorf and %w
// to add context.
package domain
