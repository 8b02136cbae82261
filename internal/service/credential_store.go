package service

import (
	"sort"
	"sync"

	"github.com/GoPolymarket/polycreds/internal/model"
	"github.com/GoPolymarket/polycreds/internal/signer"
)

// CredentialStore keeps derived L2 credentials per context key for the process
// lifetime. The statically configured credential is the fallback for any key.
type CredentialStore struct {
	mu      sync.RWMutex
	static  *model.ApiCredential
	derived map[string]model.ApiCredential
}

// NewCredentialStore accepts the configured triad; an empty api key means none.
func NewCredentialStore(static model.ApiCredential) *CredentialStore {
	s := &CredentialStore{derived: make(map[string]model.ApiCredential)}
	if static.ApiKey != "" {
		static.Secret = signer.NormalizeToBase64(static.Secret)
		static.Source = model.SourceConfig
		s.static = &static
	}
	return s
}

// Active returns the credential to sign with for contextKey.
func (s *CredentialStore) Active(contextKey string) (model.ApiCredential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.derived[contextKey]
	if !ok {
		if s.static == nil {
			return model.ApiCredential{}, false
		}
		cred = *s.static
	}
	cred.Secret = signer.NormalizeToBase64(cred.Secret)
	return cred, true
}

// SetDerived overwrites whatever was cached for contextKey.
func (s *CredentialStore) SetDerived(contextKey string, cred model.ApiCredential) {
	cred.Secret = signer.NormalizeToBase64(cred.Secret)
	cred.Source = model.SourceDerived

	s.mu.Lock()
	defer s.mu.Unlock()
	s.derived[contextKey] = cred
}

// Contexts lists the keys holding a derived credential.
func (s *CredentialStore) Contexts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.derived))
	for k := range s.derived {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
