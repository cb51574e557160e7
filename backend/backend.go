package backend

import (
	"fmt"
	"sort"
	"sync"
)

var (
	lock  = sync.RWMutex{}
	impl  = implementation(naive{})
	impls = map[string]implementation{
		"naive":  naive{},
		"blas32": blas{},
	}
)

// Available returns the names of the available backends.
func Available() []string {
	names := make([]string, 0, len(impls))
	for name := range impls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Use selects the backend to use by name.
func Use(name string) error {
	found, ok := impls[name]
	if !ok {
		return fmt.Errorf("unknown backend '%s', available: %v", name, Available())
	}

	lock.Lock()
	defer lock.Unlock()
	impl = found
	return nil
}

func current() implementation {
	lock.RLock()
	defer lock.RUnlock()
	return impl
}

func Name() string {
	return current().Name()
}

func Space() uint64 {
	return current().Space()
}

func Copy(dst, src []float32) {
	current().Copy(dst, src)
}

func Gather(dst, src []float32, cols int, indexes []int) {
	current().Gather(dst, src, cols, indexes)
}
