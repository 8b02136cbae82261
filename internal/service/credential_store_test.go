package service

import (
	"testing"

	"github.com/GoPolymarket/polycreds/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialStoreStaticFallback(t *testing.T) {
	s := NewCredentialStore(model.ApiCredential{
		ApiKey:     "cfg-key",
		Secret:     "c2VjcmV0LWtleS1mb3ItdGVzdHMtMTIzNDU2Nzg5MA",
		Passphrase: "p",
	})

	cred, ok := s.Active("0:0xabc")
	require.True(t, ok)
	assert.Equal(t, "cfg-key", cred.ApiKey)
	assert.Equal(t, testSecret, cred.Secret, "secret is padded on the way in")
	assert.Equal(t, model.SourceConfig, cred.Source)
}

func TestCredentialStoreEmpty(t *testing.T) {
	s := NewCredentialStore(model.ApiCredential{})
	_, ok := s.Active("0:0xabc")
	assert.False(t, ok)
	assert.Empty(t, s.Contexts())
}

func TestCredentialStorePartitionsByContext(t *testing.T) {
	s := NewCredentialStore(staticCred())

	s.SetDerived("0:0xaaa", model.ApiCredential{ApiKey: "k0", Secret: "-_-_", Passphrase: "p0"})
	s.SetDerived("2:0xaaa", model.ApiCredential{ApiKey: "k2", Secret: testSecret, Passphrase: "p2"})

	c0, _ := s.Active("0:0xaaa")
	c2, _ := s.Active("2:0xaaa")
	other, _ := s.Active("0:0xbbb")

	assert.Equal(t, "k0", c0.ApiKey)
	assert.Equal(t, "+/+/", c0.Secret)
	assert.Equal(t, model.SourceDerived, c0.Source)
	assert.Equal(t, "k2", c2.ApiKey)
	assert.Equal(t, "cfg-key", other.ApiKey)
	assert.Equal(t, []string{"0:0xaaa", "2:0xaaa"}, s.Contexts())
}

func TestCredentialStoreOverwrite(t *testing.T) {
	s := NewCredentialStore(model.ApiCredential{})
	s.SetDerived("0:0xaaa", model.ApiCredential{ApiKey: "old", Secret: testSecret, Passphrase: "p"})
	s.SetDerived("0:0xaaa", model.ApiCredential{ApiKey: "new", Secret: testSecret, Passphrase: "p"})

	cred, ok := s.Active("0:0xaaa")
	require.True(t, ok)
	assert.Equal(t, "new", cred.ApiKey)
}
