package dynamic

import (
	"fmt"

	"github.com/protodyn/protodyn/schema"
)

// Transport carries one RPC to the outside world: it is handed the
// method's fully-qualified name, the verified request message, and a
// completion callback. The response may be a *Message of the method's
// response type or its raw encoded bytes.
type Transport func(methodFQN string, req *Message, done func(resp interface{}, err error))

// Callback receives the outcome of a dispatched call.
type Callback func(resp *Message, err error)

// Dispatcher is the built runtime artifact of a Service: it routes method
// calls through a user-supplied transport. Every callback is delivered on
// a fresh goroutine, so no callback ever runs before the dispatching call
// has returned — including synchronously discovered errors.
type Dispatcher struct {
	sd        *schema.Service
	transport Transport
}

// NewDispatcher builds a dispatcher for sd. Building fails when any
// method's request or response reference is unresolved.
func NewDispatcher(sd *schema.Service, transport Transport) (*Dispatcher, error) {
	for _, m := range sd.Methods() {
		if m.Request == nil || m.Response == nil {
			return nil, fmt.Errorf("%w: method %s", ErrUnresolvedType, schema.FQN(m))
		}
		if _, err := Build(m.Request); err != nil {
			return nil, err
		}
		if _, err := Build(m.Response); err != nil {
			return nil, err
		}
	}
	return &Dispatcher{sd: sd, transport: transport}, nil
}

// Descriptor returns the service node the dispatcher was built from.
func (d *Dispatcher) Descriptor() *schema.Service { return d.sd }

// Call dispatches the named method with req. The callback fires exactly
// once, always asynchronously.
func (d *Dispatcher) Call(method string, req *Message, cb Callback) {
	// Each delivery goroutine waits for Call to return before running cb.
	returned := make(chan struct{})
	defer close(returned)
	deliver := cb
	cb = func(resp *Message, err error) { <-returned; deliver(resp, err) }

	md := d.sd.MethodByName(method)
	if md == nil {
		go cb(nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, schema.FQN(d.sd), method))
		return
	}
	if req == nil || req.md != md.Request {
		go cb(nil, fmt.Errorf("%w: method %s expects a %s request",
			ErrIllegalValue, md.NodeName(), schema.FQN(md.Request)))
		return
	}
	if d.transport == nil {
		go cb(nil, fmt.Errorf("no transport bound to service %s", schema.FQN(d.sd)))
		return
	}
	d.transport(schema.FQN(md), req, func(resp interface{}, err error) {
		if err != nil {
			go cb(nil, err)
			return
		}
		msg, convErr := d.responseMessage(md, resp)
		if convErr != nil {
			go cb(nil, convErr)
			return
		}
		go cb(msg, nil)
	})
}

// Method returns a bound call func for the named method, nil when the
// service declares no such method.
func (d *Dispatcher) Method(name string) func(req *Message, cb Callback) {
	if d.sd.MethodByName(name) == nil {
		return nil
	}
	return func(req *Message, cb Callback) { d.Call(name, req, cb) }
}

// responseMessage normalizes a transport response: raw bytes are decoded
// with the response factory; messages of the wrong type synthesize an
// error.
func (d *Dispatcher) responseMessage(md *schema.Method, resp interface{}) (*Message, error) {
	switch t := resp.(type) {
	case *Message:
		if t.md != md.Response {
			return nil, fmt.Errorf("%w: method %s returned a %s, want %s",
				ErrIllegalValue, md.NodeName(), schema.FQN(t.md), schema.FQN(md.Response))
		}
		return t, nil
	case []byte:
		factory, err := Build(md.Response)
		if err != nil {
			return nil, err
		}
		m, err := factory.Decode(t)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s response for method %s: %w",
				schema.FQN(md.Response), md.NodeName(), err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: method %s transport returned %T",
			ErrIllegalValue, md.NodeName(), resp)
	}
}
