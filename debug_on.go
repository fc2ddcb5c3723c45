//go:build rtdebug

package rtring

import "fmt"

const debugChecks = true

func assertf(ok bool, format string, args ...any) {
	if !ok {
		panic("rtring: " + fmt.Sprintf(format, args...))
	}
}
