package outbox

import "example.com/usercounter/internal/events"

const visitorFirstSeenSchema = `{
  "type": "object",
  "title": "VisitorFirstSeen",
  "properties": {
    "client_id": {"type": "string"},
    "seen_at": {"type": "string", "format": "date-time"},
    "date": {"type": "string", "format": "date"}
  },
  "required": ["client_id", "seen_at", "date"],
  "additionalProperties": false
}`

// SchemaCatalogEntry maps event type to schema definition.
type SchemaCatalogEntry struct {
	Schema string
}

var schemaCatalog = map[string]SchemaCatalogEntry{
	events.TypeVisitorFirstSeen: {Schema: visitorFirstSeenSchema},
}
