// Package stamp attaches the build version to a payload, producing the
// immutable artifact the writer persists.
package stamp

import (
	"gamecfg/internal/data/records"
	"gamecfg/internal/data/value"
)

// Version is the config_version written into every artifact.
const Version = "0.1"

const VersionField = "config_version"

type Kind string

const (
	KindSettings Kind = "engine_settings"
	KindItems    Kind = "items"
)

// Artifact is only built by Settings and Items and has no mutators.
type Artifact struct {
	kind    Kind
	version string
	tree    value.Value
	count   int
}

func (a Artifact) Kind() Kind      { return a.kind }
func (a Artifact) Version() string { return a.version }

// Tree is the JSON document the artifact serializes to.
func (a Artifact) Tree() value.Value { return a.tree }

// Count is the number of settings fields or items in the payload.
func (a Artifact) Count() int { return a.count }

// Settings returns the settings fields with config_version appended. A
// config_version already present in the source is overwritten in place.
func Settings(s records.EngineSettings, version string) Artifact {
	m := s.Fields()
	m.SetString(VersionField, value.String(version))
	return Artifact{kind: KindSettings, version: version, tree: value.Mapping(m), count: s.Len()}
}

func Items(items []records.ItemRecord, version string) Artifact {
	list := make([]value.Value, 0, len(items))
	for _, it := range items {
		list = append(list, it.Tree())
	}
	m := value.NewMap()
	m.SetString(VersionField, value.String(version))
	m.SetString("items", value.List(list...))
	return Artifact{kind: KindItems, version: version, tree: value.Mapping(m), count: len(items)}
}
