package rest

import (
	"context"
	"net/http"
	"reflect"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/xompass/remote-association/association"
	"github.com/xompass/remote-association/database"
	"github.com/xompass/remote-association/http_errors"
	"github.com/xompass/remote-association/lbq"
	"go.uber.org/zap"
)

const (
	FILTER_INVALID   = "FILTER_INVALID"
	RECORD_NOT_FOUND = "RECORD_NOT_FOUND"

	HeaderTotalCount = "X-Total-Count"
)

// Renderer turns a loaded record into its response body. Remote accessors
// called here read the cells loaded by includeRemote.
type Renderer[T database.IModel] func(ctx context.Context, doc T) (any, error)

// ListEndpoint serves GET requests on a collection and on its records. The
// optional filter is read from the "filter" query parameter, or from the
// "filter" header, e.g. {"where": {"active": true}, "includeRemote": ["profile"]}.
type ListEndpoint[T database.IModel] struct {
	Repository database.Repository[T]
	Render     Renderer[T]
	// Filter scopes every request. The request's where clause is added to it,
	// and its limit, skip and order win when set.
	Filter *database.FilterBuilder
	// MaxLimit caps the number of records per request. Zero means no cap.
	MaxLimit uint
	// TotalCount sets the X-Total-Count header on collection responses.
	TotalCount bool
	// ParseID converts the :id path parameter. The raw string is used when nil.
	ParseID func(string) (any, error)
	Logger  *zap.Logger
}

// Register adds the collection endpoint to group under path, and the record
// endpoint under path/:id.
func (ep *ListEndpoint[T]) Register(group *echo.Group, path string) {
	group.GET(path, ep.Handle)
	group.GET(path+"/:id", ep.HandleOne)
}

func (ep *ListEndpoint[T]) Handle(c echo.Context) error {
	ctx := c.Request().Context()

	filter, err := filterParam(c)
	if err != nil {
		return err
	}

	query, err := ep.query(filter)
	if err != nil {
		return err
	}
	query.Filter().CapLimit(ep.MaxLimit)

	if ep.TotalCount {
		total, err := query.Count(ctx)
		if err != nil {
			return err
		}
		c.Response().Header().Set(HeaderTotalCount, strconv.FormatInt(total, 10))
	}

	docs, err := query.All(ctx)
	if err != nil {
		return err
	}

	ep.logger().Debug("list",
		zap.String("path", c.Path()),
		zap.Int("count", len(docs)),
		zap.Int("remote_associations", len(query.Plan().Pending())),
	)

	if ep.Render == nil {
		return c.JSON(http.StatusOK, docs)
	}

	body := make([]any, 0, len(docs))
	for _, doc := range docs {
		rendered, err := ep.Render(ctx, doc)
		if err != nil {
			return err
		}
		body = append(body, rendered)
	}
	return c.JSON(http.StatusOK, body)
}

// HandleOne serves a single record. Only the fields, include and
// filterRemote parts of the filter matter here.
func (ep *ListEndpoint[T]) HandleOne(c echo.Context) error {
	ctx := c.Request().Context()

	var id any = c.Param("id")
	if ep.ParseID != nil {
		parsed, err := ep.ParseID(c.Param("id"))
		if err != nil {
			return http_errors.BadRequestErrorWithCode(FILTER_INVALID, "Invalid id", err.Error())
		}
		id = parsed
	}

	filter, err := filterParam(c)
	if err != nil {
		return err
	}

	query, err := ep.query(filter)
	if err != nil {
		return err
	}

	doc, err := query.FindById(ctx, id)
	if err != nil {
		return err
	}
	if reflect.ValueOf(&doc).Elem().IsZero() {
		return http_errors.NotFoundErrorWithCode(RECORD_NOT_FOUND, "Record not found", c.Param("id"))
	}

	ep.logger().Debug("show",
		zap.String("path", c.Path()),
		zap.Int("remote_associations", len(query.Plan().Pending())),
	)

	if ep.Render == nil {
		return c.JSON(http.StatusOK, doc)
	}

	rendered, err := ep.Render(ctx, doc)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rendered)
}

func (ep *ListEndpoint[T]) query(filter *lbq.Filter) (*database.Query[T], error) {
	query := database.NewQuery(ep.Repository).FromLBFilter(filter).MergeFilter(ep.Filter)
	if err := query.Err(); err != nil {
		if association.IsSettingsNotFound(err) {
			return nil, http_errors.BadRequestErrorWithCode(association.ASSOCIATION_SETTINGS_NOT_FOUND, err.Error())
		}
		return nil, err
	}
	return query, nil
}

func (ep *ListEndpoint[T]) logger() *zap.Logger {
	if ep.Logger == nil {
		return zap.NewNop()
	}
	return ep.Logger
}

// filterParam reads the filter from the query or from the header.
func filterParam(c echo.Context) (*lbq.Filter, error) {
	raw := c.QueryParam("filter")
	source := "query"
	if raw == "" {
		raw = c.Request().Header.Get("filter")
		source = "header"
	}
	if raw == "" {
		return nil, nil
	}

	filter, err := lbq.ParseFilter(raw)
	if err != nil {
		return nil, http_errors.BadRequestErrorWithCode(FILTER_INVALID, "Invalid filter "+source+" parameter", err.Error())
	}
	return filter, nil
}
