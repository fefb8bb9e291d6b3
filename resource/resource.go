package resource

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-errors/errors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jinzhu/inflection"
	"github.com/xompass/remote-association/http_errors"
	"go.uber.org/zap"
)

// Scope selects which records a find returns.
type Scope string

const (
	ScopeAll   Scope = "all"   // Every matching record
	ScopeFirst Scope = "first" // At most one matching record
)

// IsCustom reports whether s names a custom collection endpoint.
func (s Scope) IsCustom() bool {
	return s != "" && s != ScopeAll && s != ScopeFirst
}

// Finder is the remote-client capability the association layer consumes.
type Finder interface {
	// Find returns the remote objects matching params. A remote 404 is
	// reported as an error for which IsNotFound is true.
	Find(ctx context.Context, scope Scope, params Params) ([]Object, error)
}

type Options struct {
	// Site is the base URL of the remote API, e.g. http://127.0.0.1:3000
	Site string `validate:"required,url"`
	// ElementName is the singular resource name, e.g. "profile"
	ElementName string `validate:"required"`
	// CollectionName defaults to the pluralized element name
	CollectionName string
	// Format is the extension appended to paths
	Format     string `validate:"omitempty,oneof=json"`
	Headers    map[string]string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func (o *Options) SetDefaults() *Options {
	if o.CollectionName == "" {
		o.CollectionName = inflection.Plural(o.ElementName)
	}

	if o.Format == "" {
		o.Format = "json"
	}

	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}

	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: o.Timeout}
	}

	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}

	o.Site = strings.TrimRight(o.Site, "/")
	return o
}

var validate = validator.New()

var decoder = sonic.Config{UseNumber: true}.Froze()

// Resource is a Finder backed by an HTTP resource API.
type Resource struct {
	opt *Options
}

func New(opts Options) (*Resource, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, http_errors.BadRequestErrorWithCode(RESOURCE_INVALID_OPTIONS, "invalid resource options: "+err.Error())
	}

	return &Resource{opt: opts.SetDefaults()}, nil
}

func (r *Resource) Name() string {
	return r.opt.ElementName
}

func (r *Resource) CollectionName() string {
	return r.opt.CollectionName
}

// URL returns the request URL for a find with scope and params.
func (r *Resource) URL(scope Scope, params Params) string {
	path := r.opt.Site + "/" + r.opt.CollectionName
	if scope.IsCustom() {
		path += "/" + string(scope)
	}
	path += "." + r.opt.Format

	if query := params.Encode(); query != "" {
		path += "?" + query
	}
	return path
}

func (r *Resource) Find(ctx context.Context, scope Scope, params Params) ([]Object, error) {
	url := r.URL(scope, params)
	requestID := uuid.New().String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	for key, value := range r.opt.Headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	res, err := r.opt.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	r.opt.Logger.Debug("remote find",
		zap.String("resource", r.opt.ElementName),
		zap.String("scope", string(scope)),
		zap.String("url", url),
		zap.String("request_id", requestID),
		zap.Int("status", res.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	switch {
	case res.StatusCode == http.StatusNotFound:
		return nil, notFoundError(url)
	case res.StatusCode < 200 || res.StatusCode > 299:
		return nil, statusError(res.StatusCode, url, body)
	}

	objects, err := r.decode(body)
	if err != nil {
		return nil, err
	}

	if scope == ScopeFirst && len(objects) > 1 {
		objects = objects[:1]
	}
	return objects, nil
}

// decode accepts a list of objects, a single object, or either of them
// wrapped under the element or collection name.
func (r *Resource) decode(body []byte) ([]Object, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return []Object{}, nil
	}

	var raw any
	if err := decoder.Unmarshal(body, &raw); err != nil {
		return nil, http_errors.InternalServerErrorWithCode(RESOURCE_DECODE_FAILED, "cannot decode remote response: "+err.Error())
	}

	switch value := raw.(type) {
	case []any:
		return r.decodeList(value)
	case map[string]any:
		if len(value) == 1 {
			if list, ok := value[r.opt.CollectionName].([]any); ok {
				return r.decodeList(list)
			}
		}
		object, _ := r.unwrap(value)
		return []Object{object}, nil
	case nil:
		return []Object{}, nil
	}

	return nil, http_errors.InternalServerErrorWithCode(RESOURCE_DECODE_FAILED, "unexpected remote response")
}

func (r *Resource) decodeList(list []any) ([]Object, error) {
	objects := make([]Object, 0, len(list))
	for _, item := range list {
		object, ok := r.unwrap(item)
		if !ok {
			return nil, http_errors.InternalServerErrorWithCode(RESOURCE_DECODE_FAILED, "remote response contains a non-object item")
		}
		objects = append(objects, object)
	}
	return objects, nil
}

func (r *Resource) unwrap(item any) (Object, bool) {
	m, ok := item.(map[string]any)
	if !ok {
		return nil, false
	}

	if len(m) == 1 {
		if inner, ok := m[r.opt.ElementName].(map[string]any); ok {
			return Object(inner), true
		}
	}
	return Object(m), true
}
