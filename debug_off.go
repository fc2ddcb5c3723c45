//go:build !rtdebug

package rtring

const debugChecks = false

func assertf(bool, string, ...any) {}
