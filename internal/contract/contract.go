// Package contract validates event payloads against per-type contracts.
//
// A contract is a YAML field list or a single-message .proto file stored as
// <EVENT_TYPE>/v<N>.yaml or <EVENT_TYPE>/v<N>.proto. The envelope version
// selects the contract; types without a contract are accepted as-is.
package contract

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Format is the definition language of a contract.
type Format string

const (
	FormatYAML     Format = "yaml"
	FormatProtobuf Format = "protobuf"
)

// Key identifies one contract version.
type Key struct {
	Type    v1.EventType
	Version int
}

func (k Key) String() string {
	return fmt.Sprintf("%s v%d", k.Type, k.Version)
}

// Contract is a raw definition as read from its source.
type Contract struct {
	Key         Key
	Format      Format
	Definition  []byte
	Fingerprint string
}

func newContract(key Key, format Format, definition []byte) *Contract {
	sum := sha256.Sum256(definition)
	return &Contract{
		Key:         key,
		Format:      format,
		Definition:  definition,
		Fingerprint: hex.EncodeToString(sum[:]),
	}
}

// compiled is a contract ready for validation. Exactly one of spec or message is set.
type compiled struct {
	key     Key
	format  Format
	strict  bool
	spec    *yamlSpec
	message protoreflect.MessageDescriptor
}
