package rpc

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ID identifies a Call. The protocol allows numbers and strings; a zero
// value name means the number is used.
type ID struct {
	name   string
	number int64
}

func NewIntID(v int64) ID { return ID{number: v} }

func NewStringID(v string) ID { return ID{name: v} }

func (id ID) String() string {
	if id.name != "" {
		return strconv.Quote(id.name)
	}
	return "#" + strconv.FormatInt(id.number, 10)
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.name != "" {
		return json.Marshal(id.name)
	}
	return json.Marshal(id.number)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	*id = ID{}
	if err := json.Unmarshal(data, &id.number); err == nil {
		return nil
	}
	if err := json.Unmarshal(data, &id.name); err != nil {
		return fmt.Errorf("request id must be a number or a string: %s", data)
	}
	return nil
}

// Message is one of *Call, *Notification or *Response.
type Message interface {
	isMessage()
}

// Request is a message asking for a method to be invoked: a *Call or a
// *Notification.
type Request interface {
	Message
	Method() string
	// Params is the raw params member, possibly empty.
	Params() json.RawMessage
	isRequest()
}

// Notification is a request that gets no response.
type Notification struct {
	method string
	params json.RawMessage
}

// Call is a request answered by a Response with the same ID.
type Call struct {
	method string
	params json.RawMessage
	id     ID
}

// Response answers a Call. Exactly one of result and err is meaningful.
type Response struct {
	result json.RawMessage
	err    error
	id     ID
}

func NewNotification(method string, params any) (*Notification, error) {
	p, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s params: %w", method, err)
	}
	return &Notification{method: method, params: p}, nil
}

func NewCall(id ID, method string, params any) (*Call, error) {
	p, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s params: %w", method, err)
	}
	return &Call{id: id, method: method, params: p}, nil
}

// NewResponse builds the reply to the call with id. When err is set the
// result is dropped.
func NewResponse(id ID, result any, err error) (*Response, error) {
	if err != nil {
		return &Response{id: id, err: err}, nil
	}
	r, merr := json.Marshal(result)
	if merr != nil {
		return nil, fmt.Errorf("marshaling result: %w", merr)
	}
	return &Response{id: id, result: r}, nil
}

func (n *Notification) Method() string          { return n.method }
func (n *Notification) Params() json.RawMessage { return n.params }
func (*Notification) isMessage()                {}
func (*Notification) isRequest()                {}

func (c *Call) Method() string          { return c.method }
func (c *Call) Params() json.RawMessage { return c.params }
func (c *Call) ID() ID                  { return c.id }
func (*Call) isMessage()                {}
func (*Call) isRequest()                {}

func (r *Response) ID() ID                  { return r.id }
func (r *Response) Result() json.RawMessage { return r.result }
func (r *Response) Err() error              { return r.err }
func (*Response) isMessage()                {}

// envelope is the JSON-RPC 2.0 object on the wire. It has the members of
// both requests and responses; which ones are set decides the message kind.
type envelope struct {
	Version string          `json:"jsonrpc"`
	ID      *ID             `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

const version = "2.0"

func (n *Notification) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelope{Version: version, Method: n.method, Params: n.params})
}

func (c *Call) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelope{Version: version, ID: &c.id, Method: c.method, Params: c.params})
}

func (r *Response) MarshalJSON() ([]byte, error) {
	e := envelope{Version: version, ID: &r.id, Error: toWireError(r.err)}
	if e.Error == nil {
		e.Result = r.result
		if len(e.Result) == 0 {
			e.Result = json.RawMessage("null")
		}
	}
	return json.Marshal(e)
}

// DecodeMessage parses one JSON-RPC message.
func DecodeMessage(data []byte) (Message, error) {
	var e envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrParse, err)
	}
	if e.Version != version {
		return nil, fmt.Errorf("%w: unsupported jsonrpc version %q", ErrInvalidRequest, e.Version)
	}
	switch {
	case e.Method == "" && e.ID == nil:
		return nil, fmt.Errorf("%w: message has neither method nor id", ErrInvalidRequest)
	case e.Method == "":
		r := &Response{id: *e.ID, result: e.Result}
		if e.Error != nil {
			r.err = e.Error
		}
		return r, nil
	case e.ID == nil:
		return &Notification{method: e.Method, params: e.Params}, nil
	default:
		return &Call{id: *e.ID, method: e.Method, params: e.Params}, nil
	}
}
