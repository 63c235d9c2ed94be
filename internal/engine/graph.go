package engine

import (
	"context"
	"fmt"

	"github.com/yarlson/autodev/internal/session"
)

// NodeFunc is an atomic unit of work: it reads state and returns a partial
// update. Errors abort the run and are recorded in last_error.
type NodeFunc func(ctx context.Context, st *session.State) (*Patch, error)

// RouterFunc picks the successors of a node after it completes. Returning no
// successors either defers to a join (another router will schedule it) or
// ends the run.
type RouterFunc func(st *session.State) []string

// Graph is the node/edge wiring the engine executes.
type Graph struct {
	start           string
	nodes           map[string]NodeFunc
	routers         map[string]RouterFunc
	interruptBefore map[string]bool
	producers       map[string]string
}

// NewGraph creates an empty graph starting at the given node.
func NewGraph(start string) *Graph {
	return &Graph{
		start:           start,
		nodes:           make(map[string]NodeFunc),
		routers:         make(map[string]RouterFunc),
		interruptBefore: make(map[string]bool),
		producers:       make(map[string]string),
	}
}

// AddNode registers a node under the given name.
func (g *Graph) AddNode(name string, fn NodeFunc) {
	g.nodes[name] = fn
}

// SetRouter installs the successor router for a node.
func (g *Graph) SetRouter(name string, fn RouterFunc) {
	g.routers[name] = fn
}

// InterruptBefore marks a node as a pre-node pause point, honored when the
// session runs with human_in_loop.
func (g *Graph) InterruptBefore(name string) {
	g.interruptBefore[name] = true
}

// SetProducer declares that feedback intended for the consumer node routes
// back to the producer node on resume.
func (g *Graph) SetProducer(consumer, producer string) {
	g.producers[consumer] = producer
}

// Start returns the entry node name.
func (g *Graph) Start() string {
	return g.start
}

// Producer returns the producer node for a consumer, or the consumer itself
// when no producer is declared.
func (g *Graph) Producer(consumer string) string {
	if producer, ok := g.producers[consumer]; ok {
		return producer
	}
	return consumer
}

// node looks up a registered node.
func (g *Graph) node(name string) (NodeFunc, error) {
	fn, ok := g.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown graph node %q", session.ErrState, name)
	}
	return fn, nil
}

// successors returns the next nodes after name, per its router.
func (g *Graph) successors(st *session.State, name string) []string {
	router, ok := g.routers[name]
	if !ok {
		return nil
	}
	return router(st)
}
