package router

import (
	"sync"

	"github.com/google/uuid"
)

// IDGenerator provides trace IDs from a buffered channel so the hot path
// never waits on UUID generation under normal load.
type IDGenerator struct {
	idChan   chan string
	initOnce sync.Once
}

// NewIDGenerator creates an IDGenerator with the given buffer size.
func NewIDGenerator(bufferSize int) *IDGenerator {
	g := &IDGenerator{idChan: make(chan string, bufferSize)}
	g.init()
	return g
}

func (g *IDGenerator) init() {
	g.initOnce.Do(func() {
		go func() {
			for {
				g.idChan <- uuid.New().String()
			}
		}()
	})
}

// Next returns a trace ID, generating one inline if the buffer is empty.
func (g *IDGenerator) Next() string {
	select {
	case id := <-g.idChan:
		return id
	default:
		return uuid.New().String()
	}
}
