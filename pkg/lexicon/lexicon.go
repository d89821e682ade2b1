// Package lexicon holds the AFF4 vocabulary used by the resolver: namespaces,
// attribute and type URIs, and the well-known symbolic stream names.
package lexicon

import "fmt"

const (
	// Namespace is the standard AFF4 schema namespace.
	Namespace = "http://aff4.org/Schema#"

	// LegacyNamespace is the namespace used by pre-standard (Evimetry era)
	// containers.
	LegacyNamespace = "http://afflib.org/2009/aff4#"

	// VolatileNamespace prefixes attributes that only make sense while
	// a container is open. They are never written unless dumping verbosely.
	VolatileNamespace = "http://aff4.org/VolatileSchema#"

	RDFNamespace = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	XSDNamespace = "http://www.w3.org/2001/XMLSchema#"

	// HashPrefix marks content-hash pseudo subjects (byte-range references).
	HashPrefix = "aff4:sha512:"
)

// Core attributes shared by every lexicon.
const (
	Type   = RDFNamespace + "type"
	Stored = Namespace + "stored"

	ZipVolumeType  = Namespace + "ZipVolume"
	ZipSegmentType = Namespace + "ZipSegment"
	ImageType      = Namespace + "ImageStream"

	LegacyImageType = LegacyNamespace + "stream"
)

// Volatile attributes.
const (
	VolatileContains = VolatileNamespace + "contains"
	VolatileFilename = VolatileNamespace + "filename"
)

// Lexicon binds the schema base URI to the attribute names that differ
// between AFF4 standard and legacy containers.
type Lexicon struct {
	// Name is a short label for logs ("standard" or "legacy").
	Name string

	// Base is the schema namespace bound to the "aff4" prefix on dump.
	Base string

	DataStream string
	Size       string

	Zero           string
	UnknownData    string
	UnreadableData string

	// SymbolicPrefix is followed by two hex digits naming the repeated byte.
	SymbolicPrefix string
}

// Standard is the AFF4 standard lexicon.
var Standard = Lexicon{
	Name:           "standard",
	Base:           Namespace,
	DataStream:     Namespace + "dataStream",
	Size:           Namespace + "size",
	Zero:           Namespace + "Zero",
	UnknownData:    Namespace + "UnknownData",
	UnreadableData: Namespace + "UnreadableData",
	SymbolicPrefix: Namespace + "SymbolicStream",
}

// Legacy is the lexicon of containers written before the standard.
var Legacy = Lexicon{
	Name:           "legacy",
	Base:           LegacyNamespace,
	DataStream:     LegacyNamespace + "dataStream",
	Size:           LegacyNamespace + "size",
	Zero:           "aff4://zero",
	UnknownData:    "aff4://UnknownData",
	UnreadableData: "aff4://UnreadableData",
	SymbolicPrefix: "aff4://symbolic/",
}

// IsAFF4Namespace reports whether ns is the standard or the legacy schema
// namespace.
func IsAFF4Namespace(ns string) bool {
	return ns == Namespace || ns == LegacyNamespace
}

// Version identifies the AFF4 standard revision an object is created
// for. It is handed to every object constructor.
type Version struct {
	Major int
	Minor int
	Tool  string
}

// Basic is the version new objects get when the caller does not care.
var Basic = Version{Major: 1, Minor: 0, Tool: "aff4meta"}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}
