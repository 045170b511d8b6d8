package memstore

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Ramsey-B/clover/pkg/models"
)

type AssetManagerStore struct {
	s *Store
}

func (a *AssetManagerStore) Create(_ context.Context, am *models.AssetManager) (*models.AssetManager, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	for _, existing := range a.s.assetManagers {
		if existing.QualifiedName == am.QualifiedName {
			return nil, httperror.NewHTTPErrorf(http.StatusConflict, "asset manager %s already exists", am.QualifiedName)
		}
	}
	created := *am
	if created.GUID == "" {
		created.GUID = a.s.newGUID()
	}
	created.CreatedAt = a.s.now()
	a.s.assetManagers[created.GUID] = &created

	out := created
	return &out, nil
}

func (a *AssetManagerStore) Get(_ context.Context, guid string) (*models.AssetManager, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	am, ok := a.s.assetManagers[guid]
	if !ok {
		return nil, nil
	}
	out := *am
	return &out, nil
}

func (a *AssetManagerStore) GetByName(_ context.Context, qualifiedName string) (*models.AssetManager, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	for _, am := range a.s.assetManagers {
		if am.QualifiedName == qualifiedName {
			out := *am
			return &out, nil
		}
	}
	return nil, nil
}

func (a *AssetManagerStore) Delete(_ context.Context, guid string) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	delete(a.s.assetManagers, guid)
	return nil
}
