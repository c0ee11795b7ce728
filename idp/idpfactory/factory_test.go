package idpfactory

import (
	"testing"

	"github.com/gmaiocc/itic-website-sub000/idp"
	"github.com/gmaiocc/itic-website-sub000/idp/asgardeo"
	"github.com/gmaiocc/itic-website-sub000/idp/supabase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIdpAPIProvider(t *testing.T) {
	sb, err := NewIdpAPIProvider(FactoryConfig{ProviderType: idp.ProviderSupabase, BaseURL: "https://abc.supabase.co", ServiceKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &supabase.Client{}, sb)

	ag, err := NewIdpAPIProvider(FactoryConfig{ProviderType: idp.ProviderAsgardeo, BaseURL: "https://api.asgardeo.io/t/itic", ClientID: "id", ClientSecret: "s"})
	require.NoError(t, err)
	client := ag.(*asgardeo.Client)
	assert.Equal(t, "https://api.asgardeo.io/t/itic/oauth2/token", client.OAuthConfig.TokenURL)

	_, err = NewIdpAPIProvider(FactoryConfig{ProviderType: "keycloak"})
	assert.Error(t, err)
}
