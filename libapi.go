package upgo

import (
	commpkg "github.com/sachinkum0009/upgo/internal/runtime/comm"
	configpkg "github.com/sachinkum0009/upgo/internal/runtime/config"
	errspkg "github.com/sachinkum0009/upgo/internal/runtime/errors"
	idspkg "github.com/sachinkum0009/upgo/internal/runtime/ids"
	jsoncodec "github.com/sachinkum0009/upgo/internal/runtime/jsoncodec"
	loggingpkg "github.com/sachinkum0009/upgo/internal/runtime/logging"
	registrypkg "github.com/sachinkum0009/upgo/internal/runtime/registry"
	umessagepkg "github.com/sachinkum0009/upgo/internal/runtime/umessage"
	uripkg "github.com/sachinkum0009/upgo/internal/runtime/uri"
	transportpkg "github.com/sachinkum0009/upgo/transport"
	localpkg "github.com/sachinkum0009/upgo/transport/local"
	networkpkg "github.com/sachinkum0009/upgo/transport/network"
)

type (
	Config = configpkg.Config

	// Addressing
	UUri              = uripkg.UUri
	StaticUriProvider = uripkg.StaticUriProvider

	// Messages
	Message       = umessagepkg.Message
	MessageKind   = umessagepkg.Kind
	Payload       = umessagepkg.Payload
	PayloadFormat = umessagepkg.PayloadFormat

	// Listeners
	Listener       = transportpkg.Listener
	ListenerFunc   = transportpkg.ListenerFunc
	ListenerHandle = transportpkg.Handle

	// Transports
	Transport      = transportpkg.Transport
	LocalTransport = localpkg.Transport
	LocalOption    = localpkg.Option

	// Substrate plumbing behind the network transport
	Substrate             = transportpkg.Substrate
	SubstrateBuilder      = transportpkg.Builder
	SubstrateRegistry     = transportpkg.Registry
	SubstrateCapabilities = transportpkg.Capabilities
	SubstrateConfig       = transportpkg.Config
	Session               = transportpkg.Session
	SessionState          = transportpkg.SessionState

	// Network transport assembly
	NetworkTransport = networkpkg.Transport
	NetworkBuilder   = networkpkg.Builder

	// Dispatch middleware
	DispatchMiddleware = registrypkg.Middleware

	// Communication façades
	SimplePublisher = commpkg.SimplePublisher
	SimpleNotifier  = commpkg.SimpleNotifier

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger
)

// Wildcard sentinels for filter patterns.
const (
	WildcardAuthority  = uripkg.WildcardAuthority
	WildcardEntityID   = uripkg.WildcardEntityID
	WildcardVersion    = uripkg.WildcardVersion
	WildcardResourceID = uripkg.WildcardResourceID
)

// Message kinds.
const (
	KindUnspecified  = umessagepkg.KindUnspecified
	KindPublish      = umessagepkg.KindPublish
	KindNotification = umessagepkg.KindNotification
	KindDisconnect   = umessagepkg.KindDisconnect
)

// Payload formats.
const (
	FormatEmpty = umessagepkg.FormatEmpty
	FormatText  = umessagepkg.FormatText
	FormatRaw   = umessagepkg.FormatRaw
)

// Session states.
const (
	SessionConnected    = transportpkg.SessionConnected
	SessionDisconnected = transportpkg.SessionDisconnected
)

var (
	// Addressing
	NewStaticUriProvider = uripkg.NewStaticUriProvider
	ParseTopicKey        = uripkg.ParseTopicKey

	// Messages
	NewPublish        = umessagepkg.NewPublish
	NewNotification   = umessagepkg.NewNotification
	PayloadFromString = umessagepkg.FromString
	PayloadFromBytes  = umessagepkg.FromBytes
	EmptyPayload      = umessagepkg.Empty

	// Transports
	NewLocalTransport           = localpkg.New
	NewNetworkBuilder           = networkpkg.NewBuilder
	WithLocalLogger             = localpkg.WithLogger
	WithLocalDispatchMiddleware = localpkg.WithDispatchMiddleware

	// Communication façades
	NewSimplePublisher = commpkg.NewSimplePublisher
	NewSimpleNotifier  = commpkg.NewSimpleNotifier

	// Dispatch middleware
	RecovererMiddleware   = registrypkg.Recoverer
	LogMessagesMiddleware = registrypkg.LogMessages
	MetricsMiddleware     = registrypkg.Metrics
	TracerMiddleware      = registrypkg.Tracer

	// Substrate registry.
	// Import individual substrates via: _ "github.com/sachinkum0009/upgo/transport/channel"
	DefaultSubstrateRegistry = transportpkg.DefaultRegistry
	RegisterSubstrate        = transportpkg.Register
	BuildSubstrate           = transportpkg.Build
	GetCapabilities          = transportpkg.GetCapabilities

	// Config
	LoadConfig = configpkg.Load

	// Errors
	ErrInvalidAddress    = errspkg.ErrInvalidAddress
	ErrRegistration      = errspkg.ErrRegistration
	ErrNotFound          = errspkg.ErrNotFound
	ErrTransport         = errspkg.ErrTransport
	ErrSend              = errspkg.ErrSend
	ErrNotConnected      = errspkg.ErrNotConnected
	ErrBuild             = errspkg.ErrBuild
	ErrSubstrate         = errspkg.ErrSubstrate
	ErrConfigRequired    = errspkg.ErrConfigRequired
	ErrInvalidConfig     = errspkg.ErrInvalidConfig
	ErrListenerRequired  = errspkg.ErrListenerRequired
	ErrTransportRequired = errspkg.ErrTransportRequired
	ErrProviderRequired  = errspkg.ErrProviderRequired

	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal
	Encode        = jsoncodec.Encode
	Decode        = jsoncodec.Decode

	// CreateULID generates a lexicographically sortable unique ID.
	CreateULID = idspkg.New
)
