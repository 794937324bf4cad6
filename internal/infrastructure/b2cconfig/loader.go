// Package b2cconfig loads B2C application configuration files.
package b2cconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"b2c-hub/internal/domain"

	"github.com/go-playground/validator/v10"
)

const resourceExt = ".json"

type fileAuthority struct {
	AuthorityURL string `json:"authority_url" validate:"required,url,startswith=https://"`
	Type         string `json:"type" validate:"required"`
	Default      bool   `json:"default"`
}

type fileConfiguration struct {
	ClientID                    string          `json:"client_id" validate:"required"`
	RedirectURI                 string          `json:"redirect_uri" validate:"required"`
	AccountMode                 string          `json:"account_mode" validate:"omitempty,account_mode"`
	BrokerRedirectURIRegistered bool            `json:"broker_redirect_uri_registered"`
	Authorities                 []fileAuthority `json:"authorities" validate:"dive"`
	DefaultScopes               []string        `json:"default_scopes" validate:"omitempty,dive,required"`
}

// Loader resolves configuration resources inside a directory, the way a
// mobile bundle resolves "<name>.json".
type Loader struct {
	dir      string
	validate *validator.Validate
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir, validate: newValidator()}
}

// Load reads and parses the resource called name. The ".json" extension is
// optional.
func (l *Loader) Load(name string) (*domain.Configuration, error) {
	path, err := l.resolve(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Kind: KindNotFound, Field: name, Err: err}
		}
		return nil, &Error{Kind: KindMalformed, Field: name, Err: err}
	}
	return parse(l.validate, data)
}

func (l *Loader) resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || !filepath.IsLocal(name) {
		return "", &Error{Kind: KindNotFound, Field: name, Err: errors.New("resource name must be a local file name")}
	}
	if filepath.Ext(name) != resourceExt {
		name += resourceExt
	}
	return filepath.Join(l.dir, name), nil
}

// Parse decodes and validates configuration JSON.
func Parse(data []byte) (*domain.Configuration, error) {
	return parse(newValidator(), data)
}

func parse(v *validator.Validate, data []byte) (*domain.Configuration, error) {
	var file fileConfiguration
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, decodeError(err)
	}

	if len(file.Authorities) == 0 {
		return nil, &Error{Kind: KindNoAuthority, Field: "authorities"}
	}

	if err := v.Struct(file); err != nil {
		return nil, validationError(err)
	}

	return file.toDomain(), nil
}

func (f fileConfiguration) toDomain() *domain.Configuration {
	cfg := &domain.Configuration{
		ClientID:                    f.ClientID,
		RedirectURI:                 f.RedirectURI,
		AccountMode:                 f.AccountMode,
		BrokerRedirectURIRegistered: f.BrokerRedirectURIRegistered,
		Authorities:                 make([]domain.Authority, 0, len(f.Authorities)),
		DefaultScopes:               f.DefaultScopes,
	}
	if cfg.AccountMode == "" {
		cfg.AccountMode = domain.AccountModeMulti
	}
	for _, a := range f.Authorities {
		cfg.Authorities = append(cfg.Authorities, domain.Authority{
			URL:       a.AuthorityURL,
			Type:      a.Type,
			IsDefault: a.Default,
		})
	}
	return cfg
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return &Error{Kind: KindInvalidField, Field: typeErr.Field, Err: err}
	}
	return &Error{Kind: KindMalformed, Err: err}
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &Error{Kind: KindInvalidField, Err: err}
	}

	first := verrs[0]
	field := first.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}

	switch first.Tag() {
	case "required":
		return &Error{Kind: KindMissingField, Field: field, Err: errors.New(`failed "required" validation`)}
	case "account_mode":
		return &Error{
			Kind:  KindInvalidField,
			Field: field,
			Err:   fmt.Errorf("%q is not %s or %s", first.Value(), domain.AccountModeSingle, domain.AccountModeMulti),
		}
	}
	return &Error{
		Kind:  KindInvalidField,
		Field: field,
		Err:   fmt.Errorf("failed %q validation", first.Tag()),
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("account_mode", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case domain.AccountModeSingle, domain.AccountModeMulti:
			return true
		}
		return false
	})
	return v
}
