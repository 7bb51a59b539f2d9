package result

import "sync"

// IDGenerator is a struct to hold a counter for generating the next
// incremental detection ID
type IDGenerator struct {
	id int64
	sync.Mutex
}

// NewIDGenerator returns a generator whose first ID is 1
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// GetNext returns the next incremental number
func (id *IDGenerator) GetNext() int64 {
	id.Lock()
	defer id.Unlock()
	id.id++
	return id.id
}

// Last returns the most recently issued ID, or zero when none has been
// issued
func (id *IDGenerator) Last() int64 {
	id.Lock()
	defer id.Unlock()
	return id.id
}
