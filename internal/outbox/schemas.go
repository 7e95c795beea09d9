package outbox

import "example.com/bjjpoints/internal/events"

const activityRecordedSchema = `{
  "type": "object",
  "title": "ActivityRecorded",
  "properties": {
    "activity_id": {"type": "string"},
    "subject_id": {"type": "string"},
    "scope": {"type": "string", "enum": ["self", "roster"]},
    "type": {"type": "string", "enum": ["training", "tournament", "penalty", "misconduct"]},
    "points": {"type": "integer"},
    "occurred_at": {"type": "string", "format": "date-time"},
    "recorded_by": {"type": "string"}
  },
  "required": ["activity_id", "subject_id", "scope", "type", "points", "occurred_at", "recorded_by"],
  "additionalProperties": false
}`

const activityDeletedSchema = `{
  "type": "object",
  "title": "ActivityDeleted",
  "properties": {
    "activity_id": {"type": "string"},
    "subject_id": {"type": "string"},
    "scope": {"type": "string", "enum": ["self", "roster"]},
    "deleted_at": {"type": "string", "format": "date-time"}
  },
  "required": ["activity_id", "subject_id", "scope", "deleted_at"],
  "additionalProperties": false
}`

const athleteChangedSchema = `{
  "type": "object",
  "title": "AthleteChanged",
  "properties": {
    "athlete_id": {"type": "string"},
    "name": {"type": "string"},
    "belt": {"type": "string", "enum": ["white", "blue", "purple", "brown", "black"]},
    "active": {"type": "boolean"},
    "changed_by": {"type": "string"},
    "changed_at": {"type": "string", "format": "date-time"}
  },
  "required": ["athlete_id", "name", "belt", "active", "changed_by", "changed_at"],
  "additionalProperties": false
}`

// SchemaCatalogEntry maps event type to schema definition.
type SchemaCatalogEntry struct {
	Schema string
}

var schemaCatalog = map[string]SchemaCatalogEntry{
	events.TypeActivityRecorded: {Schema: activityRecordedSchema},
	events.TypeActivityDeleted:  {Schema: activityDeletedSchema},
	events.TypeAthleteChanged:   {Schema: athleteChangedSchema},
}
