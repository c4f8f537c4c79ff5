//go:build !simdebug

package core

func invariant(bool, string, ...any) {}
