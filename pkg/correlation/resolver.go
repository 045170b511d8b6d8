package correlation

import (
	"context"
	"strings"
	"time"

	"github.com/Ramsey-B/clover/pkg/errors"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultResolverCacheSize = 256
	defaultResolverCacheTTL  = time.Minute
)

// resolver turns an AssetManagerRef into a registered asset manager. Registrations are
// never updated, so they are cached by GUID and by name. Entries expire after ttl so a
// delete made through another process is picked up.
type resolver struct {
	store  AssetManagerStore
	byGUID *expirable.LRU[string, *models.AssetManager]
	byName *expirable.LRU[string, *models.AssetManager]
}

func newResolver(store AssetManagerStore, size int, ttl time.Duration) *resolver {
	if size <= 0 {
		size = defaultResolverCacheSize
	}
	if ttl <= 0 {
		ttl = defaultResolverCacheTTL
	}
	return &resolver{
		store:  store,
		byGUID: expirable.NewLRU[string, *models.AssetManager](size, nil, ttl),
		byName: expirable.NewLRU[string, *models.AssetManager](size, nil, ttl),
	}
}

// resolve finds the asset manager named by ref. When both halves are given they must
// agree. Unknown asset managers are an InvalidParameter.
func (r *resolver) resolve(ctx context.Context, method string, ref models.AssetManagerRef) (*models.AssetManager, error) {
	guid := strings.TrimSpace(ref.GUID)
	name := strings.TrimSpace(ref.Name)
	if guid == "" && name == "" {
		return nil, errors.InvalidParameter(method, "asset manager GUID or name is required")
	}

	var (
		am  *models.AssetManager
		err error
	)
	if guid != "" {
		am, err = r.get(ctx, guid)
	} else {
		am, err = r.getByName(ctx, name)
	}
	if err != nil {
		return nil, errors.Classify(method, err)
	}
	if am == nil {
		return nil, errors.InvalidParameter(method, "asset manager %s is not registered", ref.String()).
			AddMetaValue("asset_manager", ref.String())
	}
	if guid != "" && name != "" && am.QualifiedName != name {
		return nil, errors.InvalidParameter(method, "asset manager GUID %s does not belong to %s", guid, name).
			AddMetaValue("asset_manager_guid", guid).
			AddMetaValue("asset_manager_name", name)
	}
	return am, nil
}

// confirm re-reads a resolved asset manager from the store before a new correlation
// record is written for it. A registration deleted elsewhere is dropped from the cache
// and reported as unregistered.
func (r *resolver) confirm(ctx context.Context, method string, am *models.AssetManager) error {
	current, err := r.store.Get(ctx, am.GUID)
	if err != nil {
		return errors.Classify(method, err)
	}
	if current == nil {
		r.forget(am)
		return errors.InvalidParameter(method, "asset manager %s is not registered", am.QualifiedName).
			AddMetaValue("asset_manager_guid", am.GUID)
	}
	return nil
}

func (r *resolver) get(ctx context.Context, guid string) (*models.AssetManager, error) {
	if am, ok := r.byGUID.Get(guid); ok {
		return am, nil
	}
	am, err := r.store.Get(ctx, guid)
	if err != nil || am == nil {
		return nil, err
	}
	r.add(am)
	return am, nil
}

func (r *resolver) getByName(ctx context.Context, name string) (*models.AssetManager, error) {
	if am, ok := r.byName.Get(name); ok {
		return am, nil
	}
	am, err := r.store.GetByName(ctx, name)
	if err != nil || am == nil {
		return nil, err
	}
	r.add(am)
	return am, nil
}

func (r *resolver) add(am *models.AssetManager) {
	r.byGUID.Add(am.GUID, am)
	r.byName.Add(am.QualifiedName, am)
}

func (r *resolver) forget(am *models.AssetManager) {
	r.byGUID.Remove(am.GUID)
	r.byName.Remove(am.QualifiedName)
}
