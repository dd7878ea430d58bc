package domain

// Document represents a single document, serialized as JSON on the wire
type Document map[string]interface{}

// Copy returns a shallow copy of the document. Index specs handed out by the
// catalog are copied so callers can annotate them without mutating the
// stored definition.
func (d Document) Copy() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// ReadConcern describes the snapshot level a read ran against. It is captured
// at cursor creation time and attached to the registered cursor.
type ReadConcern struct {
	Level string `json:"level"`
}

// DefaultReadConcern returns the read concern used when a request does not
// specify one.
func DefaultReadConcern() ReadConcern {
	return ReadConcern{Level: "local"}
}
