// Package uri implements the hierarchical addressing scheme for uEntities.
// An address is the (authority, entity, version, resource) tuple; its
// deterministic string form is the topic key used for substrate-level
// publish/subscribe matching.
package uri

import (
	"fmt"
	"strconv"
	"strings"

	errspkg "github.com/sachinkum0009/upgo/internal/runtime/errors"
)

// Wildcard sentinels. A pattern field holding its sentinel matches any
// value at that position. Concrete addresses (publish keys, message
// sources) must not carry them.
const (
	WildcardAuthority         = "*"
	WildcardEntityID   uint32 = 0xFFFF_FFFF
	WildcardVersion    uint8  = 0xFF
	WildcardResourceID uint16 = 0xFFFF
)

// KeySeparator joins the four positional fields of a topic key.
const KeySeparator = "/"

// UUri addresses a uEntity resource. It is plain value data: equality is
// field-wise, instances are freely copied and shared, and all methods are
// safe for concurrent use.
type UUri struct {
	Authority  string
	EntityID   uint32
	Version    uint8
	ResourceID uint16
}

// Equal reports field-wise equality; two equal addresses are
// interchangeable for routing.
func (u UUri) Equal(o UUri) bool { return u == o }

// IsEntityLevel reports whether the address names the entity itself rather
// than a specific resource.
func (u UUri) IsEntityLevel() bool { return u.ResourceID == 0 }

// HasWildcard reports whether any positional field holds its wildcard
// sentinel.
func (u UUri) HasWildcard() bool {
	return u.Authority == WildcardAuthority ||
		u.EntityID == WildcardEntityID ||
		u.Version == WildcardVersion ||
		u.ResourceID == WildcardResourceID
}

// Matches reports whether the concrete address u is selected by pattern.
// Each pattern position must either equal u's value or hold the wildcard
// sentinel for that position.
func (u UUri) Matches(pattern UUri) bool {
	if pattern.Authority != WildcardAuthority && pattern.Authority != u.Authority {
		return false
	}
	if pattern.EntityID != WildcardEntityID && pattern.EntityID != u.EntityID {
		return false
	}
	if pattern.Version != WildcardVersion && pattern.Version != u.Version {
		return false
	}
	if pattern.ResourceID != WildcardResourceID && pattern.ResourceID != u.ResourceID {
		return false
	}
	return true
}

// Validate checks the fields an address needs before it can act as a
// registration pattern: a non-empty authority without the key separator.
// Wildcard sentinels are allowed.
func (u UUri) Validate() error {
	if u.Authority == "" {
		return fmt.Errorf("%w: authority must not be empty", errspkg.ErrInvalidAddress)
	}
	if u.Authority != WildcardAuthority && strings.Contains(u.Authority, KeySeparator) {
		return fmt.Errorf("%w: authority %q must not contain %q", errspkg.ErrInvalidAddress, u.Authority, KeySeparator)
	}
	return nil
}

// TopicKey renders the deterministic publish key
// "{authority}/{entity_id:x}/{version:x}/{resource_id:x}". Wildcards are
// rejected: publish keys are always concrete.
func (u UUri) TopicKey() (string, error) {
	if err := u.Validate(); err != nil {
		return "", err
	}
	if u.HasWildcard() {
		return "", fmt.Errorf("%w: publish key must not contain wildcards (%s)", errspkg.ErrInvalidAddress, u.FilterKey())
	}
	return u.FilterKey(), nil
}

// FilterKey renders the subscription pattern form of the address, with "*"
// in any wildcard position. For concrete addresses it equals the topic key.
func (u UUri) FilterKey() string {
	parts := make([]string, 0, 4)
	parts = append(parts, u.Authority)
	if u.EntityID == WildcardEntityID {
		parts = append(parts, WildcardAuthority)
	} else {
		parts = append(parts, strconv.FormatUint(uint64(u.EntityID), 16))
	}
	if u.Version == WildcardVersion {
		parts = append(parts, WildcardAuthority)
	} else {
		parts = append(parts, strconv.FormatUint(uint64(u.Version), 16))
	}
	if u.ResourceID == WildcardResourceID {
		parts = append(parts, WildcardAuthority)
	} else {
		parts = append(parts, strconv.FormatUint(uint64(u.ResourceID), 16))
	}
	return strings.Join(parts, KeySeparator)
}

func (u UUri) String() string { return u.FilterKey() }

// ParseTopicKey inverts FilterKey/TopicKey. Wildcard tokens parse back to
// their sentinels, so filter keys round-trip as well.
func ParseTopicKey(key string) (UUri, error) {
	parts := strings.Split(key, KeySeparator)
	if len(parts) != 4 {
		return UUri{}, fmt.Errorf("%w: topic key %q must have 4 fields", errspkg.ErrInvalidAddress, key)
	}

	u := UUri{Authority: parts[0]}
	if err := u.Validate(); err != nil {
		return UUri{}, err
	}

	if parts[1] == WildcardAuthority {
		u.EntityID = WildcardEntityID
	} else {
		v, err := strconv.ParseUint(parts[1], 16, 32)
		if err != nil {
			return UUri{}, fmt.Errorf("%w: entity id %q: %v", errspkg.ErrInvalidAddress, parts[1], err)
		}
		u.EntityID = uint32(v)
	}

	if parts[2] == WildcardAuthority {
		u.Version = WildcardVersion
	} else {
		v, err := strconv.ParseUint(parts[2], 16, 8)
		if err != nil {
			return UUri{}, fmt.Errorf("%w: version %q: %v", errspkg.ErrInvalidAddress, parts[2], err)
		}
		u.Version = uint8(v)
	}

	if parts[3] == WildcardAuthority {
		u.ResourceID = WildcardResourceID
	} else {
		v, err := strconv.ParseUint(parts[3], 16, 16)
		if err != nil {
			return UUri{}, fmt.Errorf("%w: resource id %q: %v", errspkg.ErrInvalidAddress, parts[3], err)
		}
		u.ResourceID = uint16(v)
	}

	return u, nil
}

// ValidateAuthority checks an authority string for use as a concrete
// namespace: non-empty, no separator, not the wildcard token.
func ValidateAuthority(authority string) error {
	if authority == "" {
		return fmt.Errorf("%w: authority must not be empty", errspkg.ErrInvalidAddress)
	}
	if authority == WildcardAuthority {
		return fmt.Errorf("%w: authority must not be the wildcard token", errspkg.ErrInvalidAddress)
	}
	if strings.Contains(authority, KeySeparator) {
		return fmt.Errorf("%w: authority %q must not contain %q", errspkg.ErrInvalidAddress, authority, KeySeparator)
	}
	return nil
}

// StaticUriProvider builds addresses for one fixed (authority, entity,
// version) triple bound at construction time. Construction validates once;
// the accessors are pure and never fail.
type StaticUriProvider struct {
	authority string
	entityID  uint32
	version   uint8
}

// NewStaticUriProvider validates the triple and returns a provider.
// The entity id and version widths are enforced by their Go types; the
// wildcard sentinels are rejected so every derived address stays concrete.
func NewStaticUriProvider(authority string, entityID uint32, version uint8) (*StaticUriProvider, error) {
	if err := ValidateAuthority(authority); err != nil {
		return nil, err
	}
	if entityID == WildcardEntityID {
		return nil, fmt.Errorf("%w: entity id must not be the wildcard sentinel", errspkg.ErrInvalidAddress)
	}
	if version == WildcardVersion {
		return nil, fmt.Errorf("%w: version must not be the wildcard sentinel", errspkg.ErrInvalidAddress)
	}
	return &StaticUriProvider{authority: authority, entityID: entityID, version: version}, nil
}

// ResourceURI returns the address of one resource within the entity.
func (p *StaticUriProvider) ResourceURI(resourceID uint16) UUri {
	return UUri{
		Authority:  p.authority,
		EntityID:   p.entityID,
		Version:    p.version,
		ResourceID: resourceID,
	}
}

// SourceURI returns the entity-level address (resource id 0), used as the
// source or sink for entity-to-entity addressing.
func (p *StaticUriProvider) SourceURI() UUri { return p.ResourceURI(0) }

// Authority returns the provider's authority namespace.
func (p *StaticUriProvider) Authority() string { return p.authority }
