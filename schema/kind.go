package schema

// Kind identifies the shape of a schema node on the wire.
type Kind uint8

const (
	Null Kind = iota
	Boolean
	Int
	Long
	Float
	Double
	Bytes
	String
	Fixed
	Enum
	Array
	Map
	Record
	Union
)

var kindNames = [...]string{
	Null:    "null",
	Boolean: "boolean",
	Int:     "int",
	Long:    "long",
	Float:   "float",
	Double:  "double",
	Bytes:   "bytes",
	String:  "string",
	Fixed:   "fixed",
	Enum:    "enum",
	Array:   "array",
	Map:     "map",
	Record:  "record",
	Union:   "union",
}

// String returns the Avro type name of k.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Named reports whether nodes of kind k are identified by name.
func (k Kind) Named() bool { return k == Fixed || k == Enum || k == Record }

// Primitive reports whether k is one of the eight primitive types.
func (k Kind) Primitive() bool { return k <= String }
