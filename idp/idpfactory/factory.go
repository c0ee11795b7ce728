package idpfactory

import (
	"fmt"
	"net/http"

	"github.com/gmaiocc/itic-website-sub000/idp"
	"github.com/gmaiocc/itic-website-sub000/idp/asgardeo"
	"github.com/gmaiocc/itic-website-sub000/idp/supabase"
)

type FactoryConfig struct {
	ProviderType idp.ProviderType
	BaseURL      string
	// ServiceKey is the Supabase service-role key
	ServiceKey   string
	ClientID     string
	ClientSecret string
	Scopes       []string
	HTTPClient   *http.Client
}

func NewIdpAPIProvider(cfg FactoryConfig) (idp.IdentityProviderAPI, error) {
	switch cfg.ProviderType {
	case idp.ProviderSupabase:
		return supabase.NewClient(cfg.BaseURL, cfg.ServiceKey, cfg.HTTPClient), nil
	case idp.ProviderAsgardeo:
		return asgardeo.NewClient(cfg.BaseURL, cfg.ClientID, cfg.ClientSecret, cfg.Scopes), nil
	default:
		return nil, fmt.Errorf("unsupported provider type %q", cfg.ProviderType)
	}
}
