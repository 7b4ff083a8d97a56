package endpoint

import (
	"fmt"
	"strings"
)

// Options is the information the registration builder needs to derive one
// Descriptor — the Go-native equivalent of what an attribute scan would
// have recovered from a handler method.
type Options struct {
	Controller string // handler type name, e.g. "EmployeeEventController"
	Method     string
	Version    string // defaults to "1" if empty

	SubjectPattern string

	Connection       string // empty ⇒ configured default
	StreamTemplate   string // empty ⇒ "{controller}_v{version}_stream"
	ConsumerTemplate string // empty ⇒ "{controller}_{method}_consumer"

	HasRequest  bool
	HasResponse bool

	DeliveryMode DeliveryMode
	ConsumerMode ConsumerMode

	RequestDecoder DecodeFunc
	ArgKinds       []ArgKind
	Handler        HandlerFunc
}

// Catalog holds every registered Descriptor, partitioned by mode, and is
// immutable once discovery (registration) completes — matching the
// source's "immutable after startup" invariant.
type Catalog struct {
	all              []Descriptor
	byMode           map[Mode][]Descriptor
	defaultConn      string
	controllerPrefix func(string) string
}

// NewCatalog builds an empty Catalog. defaultConnection is resolved when
// an Options value leaves Connection empty; controllerName derives the
// class-stripped controller name from a raw handler type name (see
// subject.ControllerName).
func NewCatalog(defaultConnection string, controllerName func(string) string) *Catalog {
	return &Catalog{
		byMode:           make(map[Mode][]Descriptor),
		defaultConn:      defaultConnection,
		controllerPrefix: controllerName,
	}
}

// Register derives a Descriptor from opts per the precedence rules in §3
// and §4.D and appends it to the catalog. It returns an error for
// configuration-level problems (missing handler, missing subject pattern)
// — these are fatal at startup, never silently skipped.
func (c *Catalog) Register(opts Options) (Descriptor, error) {
	if opts.Handler == nil {
		return Descriptor{}, fmt.Errorf("endpoint %s.%s: no handler registered", opts.Controller, opts.Method)
	}
	if opts.SubjectPattern == "" {
		return Descriptor{}, fmt.Errorf("endpoint %s.%s: no subject pattern", opts.Controller, opts.Method)
	}

	controllerName := c.controllerPrefix(opts.Controller)
	version := opts.Version
	if version == "" {
		version = "1"
	}

	connection := opts.Connection
	if connection == "" {
		connection = c.defaultConn
	}

	streamName := opts.StreamTemplate
	if streamName == "" {
		streamName = fmt.Sprintf("%s_v%s_stream", controllerName, version)
	}
	streamName = strings.ToLower(expandTemplate(streamName, controllerName, opts.Method, version))

	consumerName := opts.ConsumerTemplate
	if consumerName == "" {
		consumerName = fmt.Sprintf("%s_%s_consumer", controllerName, strings.ToLower(opts.Method))
	}
	consumerName = strings.ToLower(expandTemplate(consumerName, controllerName, opts.Method, version))

	mode := classify(opts.HasResponse, opts.DeliveryMode, opts.ConsumerMode)

	d := Descriptor{
		ControllerName: controllerName,
		MethodName:     opts.Method,
		Version:        version,
		SubjectPattern: opts.SubjectPattern,
		Mode:           mode,
		ConnectionName: connection,
		StreamName:     streamName,
		ConsumerName:   consumerName,
		HasRequest:     opts.HasRequest,
		HasResponse:    opts.HasResponse,
		RequestDecoder: opts.RequestDecoder,
		ArgKinds:       opts.ArgKinds,
		Handler:        opts.Handler,
	}

	c.all = append(c.all, d)
	c.byMode[mode] = append(c.byMode[mode], d)
	return d, nil
}

// classify implements the precedence rule from §3: presence of a response
// ⇒ request-reply; else deliveryMode == Core ⇒ pub-sub; else consumerMode
// == Consume ⇒ JS continuous; else JS fetch.
func classify(hasResponse bool, delivery DeliveryMode, consumer ConsumerMode) Mode {
	switch {
	case hasResponse:
		return ModeRequestReply
	case delivery == DeliveryCore:
		return ModeCorePubSub
	case consumer == ConsumerModeConsume:
		return ModeJSConsume
	default:
		return ModeJSFetch
	}
}

func expandTemplate(tmpl, controller, method, version string) string {
	r := strings.NewReplacer(
		"{controllerName}", controller,
		"{controller}", controller,
		"{methodName}", method,
		"{method}", method,
		"{version}", version,
	)
	return r.Replace(tmpl)
}

// All returns every registered Descriptor.
func (c *Catalog) All() []Descriptor { return c.all }

// ByMode returns the flat list of Descriptors partitioned under mode.
func (c *Catalog) ByMode(mode Mode) []Descriptor { return c.byMode[mode] }
