package channel

import (
	"time"

	"b2c-hub/internal/domain"
)

type authorityView struct {
	URL     string `json:"authority_url"`
	Type    string `json:"type"`
	Default bool   `json:"default"`
}

type configurationView struct {
	ClientID                    string          `json:"client_id"`
	RedirectURI                 string          `json:"redirect_uri"`
	AccountMode                 string          `json:"account_mode"`
	BrokerRedirectURIRegistered bool            `json:"broker_redirect_uri_registered"`
	Authorities                 []authorityView `json:"authorities"`
	DefaultScopes               []string        `json:"default_scopes"`
}

type subjectsView struct {
	Subjects []string `json:"subjects"`
}

type subjectInfoView struct {
	Username string         `json:"username"`
	Claims   map[string]any `json:"claims"`
}

type accessTokenView struct {
	Subject string `json:"subject"`
	Token   string `json:"token"`
	Expire  string `json:"expire"`
}

func newConfigurationView(cfg *domain.Configuration) configurationView {
	view := configurationView{
		ClientID:                    cfg.ClientID,
		RedirectURI:                 cfg.RedirectURI,
		AccountMode:                 cfg.AccountMode,
		BrokerRedirectURIRegistered: cfg.BrokerRedirectURIRegistered,
		Authorities:                 make([]authorityView, 0, len(cfg.Authorities)),
		DefaultScopes:               cfg.DefaultScopes,
	}
	if view.DefaultScopes == nil {
		view.DefaultScopes = []string{}
	}
	for _, a := range cfg.Authorities {
		view.Authorities = append(view.Authorities, authorityView{URL: a.URL, Type: a.Type, Default: a.IsDefault})
	}
	return view
}

func newSubjectInfoView(u domain.User) subjectInfoView {
	claims := u.Claims()
	if claims == nil {
		claims = map[string]any{}
	}
	return subjectInfoView{Username: u.Username(), Claims: claims}
}

func newAccessTokenView(subject string, res *domain.AuthResult) accessTokenView {
	return accessTokenView{
		Subject: subject,
		Token:   res.AccessToken,
		Expire:  res.ExpiresOn.UTC().Format(time.RFC3339),
	}
}
