package outbox

import "example.com/volunteer/internal/events"

const participationRegisteredSchema = `{
  "type": "object",
  "title": "ParticipationRegistered",
  "properties": {
    "event_id": {"type": "string", "format": "uuid"},
    "activity_id": {"type": "integer"},
    "user_id": {"type": "integer"},
    "hours_realized": {"type": "string"},
    "completed": {"type": "boolean"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["event_id", "activity_id", "user_id", "hours_realized", "completed", "occurred_at"],
  "additionalProperties": false
}`

const participationUpdatedSchema = `{
  "type": "object",
  "title": "ParticipationUpdated",
  "properties": {
    "event_id": {"type": "string", "format": "uuid"},
    "activity_id": {"type": "integer"},
    "user_id": {"type": "integer"},
    "hours_realized": {"type": "string"},
    "completed": {"type": "boolean"},
    "completion_date": {"type": "string", "format": "date-time"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["event_id", "activity_id", "user_id", "hours_realized", "completed", "occurred_at"],
  "additionalProperties": false
}`

const participationRemovedSchema = `{
  "type": "object",
  "title": "ParticipationRemoved",
  "properties": {
    "event_id": {"type": "string", "format": "uuid"},
    "activity_id": {"type": "integer"},
    "user_id": {"type": "integer"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["event_id", "activity_id", "user_id", "occurred_at"],
  "additionalProperties": false
}`

// SchemaCatalogEntry maps event type to schema definition.
type SchemaCatalogEntry struct {
	Schema string
}

var schemaCatalog = map[string]SchemaCatalogEntry{
	events.TypeParticipationRegistered: {Schema: participationRegisteredSchema},
	events.TypeParticipationUpdated:    {Schema: participationUpdatedSchema},
	events.TypeParticipationRemoved:    {Schema: participationRemovedSchema},
}
