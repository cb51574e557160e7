package device

import (
	"fmt"
	"sync"
)

// run `f` in parallel on all the streams
func doParallel(streams []*stream, f func(s *stream) error) (errs []error) {
	wg, readersWg := &sync.WaitGroup{}, &sync.WaitGroup{}
	errorChan := make(chan error)

	wg.Add(len(streams))
	readersWg.Add(1)

	for _, s := range streams {
		go func(s *stream) {
			defer wg.Done()
			defer func() {
				if e := recover(); e != nil {
					errorChan <- fmt.Errorf("device %d %s: worker exception: %v", s.id, s.dir, e)
				}
			}()
			if err := f(s); err != nil {
				errorChan <- fmt.Errorf("device %d %s: %v", s.id, s.dir, err)
			}
		}(s)
	}

	go func() {
		for err := range errorChan {
			errs = append(errs, err)
		}
		readersWg.Done()
	}()

	wg.Wait()

	close(errorChan)

	readersWg.Wait()

	return
}
