package rtring

import (
	"fmt"
	"reflect"
)

// checkCopyable reports why t cannot be stored in a cell, or nil if it can.
// Cells are copied without a lock, so anything reaching the heap through a
// reference is rejected.
func checkCopyable(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return nil
	case reflect.Array:
		if err := checkCopyable(t.Elem()); err != nil {
			return fmt.Errorf("%s: %w", t, err)
		}
		return nil
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if err := checkCopyable(f.Type); err != nil {
				return fmt.Errorf("%s.%s: %w", t, f.Name, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("%s is a %s, which is not a plain value", t, t.Kind())
	}
}

// mustBeCopyable panics unless T may be stored in a ring.
func mustBeCopyable[T any]() {
	t := reflect.TypeFor[T]()
	if err := checkCopyable(t); err != nil {
		panic("element type must be copyable by value: " + err.Error())
	}
}
