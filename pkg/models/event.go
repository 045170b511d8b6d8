package models

import "time"

// EventType names a lifecycle event.
type EventType string

const (
	EventElementCreated        EventType = "element.created"
	EventElementUpdated        EventType = "element.updated"
	EventElementDeleted        EventType = "element.deleted"
	EventCorrelationAttached   EventType = "correlation.attached"
	EventCorrelationDetached   EventType = "correlation.detached"
	EventCorrelationReconciled EventType = "correlation.reconciled"
	EventRelationshipAttached  EventType = "relationship.attached"
	EventRelationshipDetached  EventType = "relationship.detached"
	EventAssetManagerCreated   EventType = "asset_manager.created"
)

// Event describes one lifecycle change made by the correlation manager.
type Event struct {
	Type             EventType `json:"event_type"`
	ElementGUID      string    `json:"element_guid,omitempty"`
	ElementType      string    `json:"element_type,omitempty"`
	AssetManagerGUID string    `json:"asset_manager_guid,omitempty"`
	Identifier       string    `json:"identifier,omitempty"`
	RelationshipGUID string    `json:"relationship_guid,omitempty"`
	RelationshipType string    `json:"relationship_type,omitempty"`
	EndOneGUID       string    `json:"end_one_guid,omitempty"`
	EndTwoGUID       string    `json:"end_two_guid,omitempty"`
	Version          int       `json:"version,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// Key is the partition key for the event.
func (e Event) Key() string {
	switch {
	case e.ElementGUID != "":
		return e.ElementGUID
	case e.RelationshipGUID != "":
		return e.RelationshipGUID
	default:
		return e.AssetManagerGUID
	}
}
