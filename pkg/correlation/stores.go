package correlation

import (
	"context"
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
)

// ElementStore persists metadata elements.
type ElementStore interface {
	// Create stores a new element and returns it with GUID, version and timestamps set.
	Create(ctx context.Context, element *models.Element, opts models.RequestOptions) (*models.Element, error)
	// Get fails with a not-found error when the element does not exist.
	Get(ctx context.Context, guid string, opts models.RequestOptions) (*models.Element, error)
	// Update merges props into the element, or replaces its properties when replaceAll is set,
	// and increments the version.
	Update(ctx context.Context, guid string, replaceAll bool, props models.ElementProperties, opts models.RequestOptions) (*models.Element, error)
	// Delete removes the element and every element anchored to it, returning the removed GUIDs.
	Delete(ctx context.Context, guid string, opts models.RequestOptions) ([]string, error)
	Find(ctx context.Context, criteria models.SearchCriteria, paging models.Paging, opts models.RequestOptions) ([]models.Element, error)
	// SetAnchor sets or, with a nil anchor, clears the element's anchor.
	SetAnchor(ctx context.Context, guid string, anchorGUID *string) error
}

// RelationshipStore persists typed links between elements. It does not deduplicate.
type RelationshipStore interface {
	Relate(ctx context.Context, rel *models.Relationship, opts models.RequestOptions) (*models.Relationship, error)
	// Find returns the relationships of relType from endOne to endTwo.
	Find(ctx context.Context, relType, endOneGUID, endTwoGUID string, opts models.RequestOptions) ([]models.Relationship, error)
	// Unrelate removes the relationships of relType from endOne to endTwo. Removing
	// nothing is not an error.
	Unrelate(ctx context.Context, relType, endOneGUID, endTwoGUID string, opts models.RequestOptions) error
	// List returns the relationships that have guid at either end.
	List(ctx context.Context, guid string, paging models.Paging, opts models.RequestOptions) ([]models.Relationship, error)
	RemoveForElement(ctx context.Context, guid string) error
}

// CorrelationStore persists correlation records. Lookup returns nil, nil when there is
// no record for the pair.
type CorrelationStore interface {
	// Attach fails with a conflict when the pair is already correlated.
	Attach(ctx context.Context, record *models.CorrelationRecord) error
	Lookup(ctx context.Context, elementGUID, assetManagerGUID string) (*models.CorrelationRecord, error)
	Update(ctx context.Context, record *models.CorrelationRecord) error
	// Detach removes the record for the pair. Removing nothing is not an error.
	Detach(ctx context.Context, elementGUID, assetManagerGUID string) error
	DetachAll(ctx context.Context, elementGUID string) ([]models.CorrelationRecord, error)
	ListForElement(ctx context.Context, elementGUID string) ([]models.CorrelationRecord, error)
	FindByIdentifier(ctx context.Context, assetManagerGUID, identifier string) ([]models.CorrelationRecord, error)
	// DetachAssetManager removes every record of the asset manager and returns how many.
	DetachAssetManager(ctx context.Context, assetManagerGUID string) (int, error)
}

// AssetManagerStore persists asset manager registrations. Get and GetByName return
// nil, nil when nothing matches.
type AssetManagerStore interface {
	Create(ctx context.Context, am *models.AssetManager) (*models.AssetManager, error)
	Get(ctx context.Context, guid string) (*models.AssetManager, error)
	GetByName(ctx context.Context, qualifiedName string) (*models.AssetManager, error)
	Delete(ctx context.Context, guid string) error
}

// Notifier receives lifecycle events. Failures are logged and never fail the operation.
type Notifier interface {
	Publish(ctx context.Context, event models.Event) error
}

// Observer receives the outcome of every manager operation.
type Observer interface {
	ObserveOperation(method string, err error, duration time.Duration)
}
