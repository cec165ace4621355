package types

// EntityKind tags the owner side of a polymorphic reference (locations,
// attachments, comments, reactions and tagged items all hang off arbitrary
// snap entities). Resolution goes through an explicit per-kind repo lookup.
type EntityKind string

const (
  EntityKindMoment      EntityKind = "moment"
  EntityKindAttachment  EntityKind = "attachment"
  EntityKindComment     EntityKind = "comment"
)
