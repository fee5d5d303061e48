package repositories

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/echopoint/echopoint/internal/models"
)

const (
	defaultListLimit = 3
	maxListLimit     = 100
)

// tableSpec pins down what a list query may touch for one table. Every
// identifier that ends up in SQL comes from here, never from the request.
type tableSpec struct {
	selectClause string
	from         string
	defaultOrder string
	// queryable maps the public query-parameter name to the SQL expression
	// used for filtering and sorting.
	queryable map[string]string
}

var usersTable = tableSpec{
	selectClause: userColumns,
	from:         "users",
	defaultOrder: "created_at DESC",
	queryable: map[string]string{
		"name":       "name",
		"email":      "email",
		"role":       "role",
		"created_at": "created_at",
	},
}

var postsTable = tableSpec{
	selectClause: postColumns,
	from:         postsFrom,
	defaultOrder: "p.created_at DESC",
	queryable: map[string]string{
		"title":      "p.title",
		"content":    "p.content",
		"user_id":    "p.user_id",
		"created_at": "p.created_at",
		"updated_at": "p.updated_at",
	},
}

var commentsTable = tableSpec{
	selectClause: commentColumns,
	from:         commentsFrom,
	defaultOrder: "c.created_at ASC",
	queryable: map[string]string{
		"user_id":    "c.user_id",
		"created_at": "c.created_at",
	},
}

type sortField struct {
	expr string
	desc bool
}

type filter struct {
	expr  string
	op    string
	value interface{}
}

// ListOptions is the translated form of a list request's query string. Fields
// is applied at serialization time, everything else becomes SQL.
type ListOptions struct {
	Fields  []string
	sorts   []sortField
	filters []filter
	page    int
	limit   int
}

var filterOps = map[string]string{
	"eq":  "=",
	"ne":  "<>",
	"gt":  ">",
	"gte": ">=",
	"lt":  "<",
	"lte": "<=",
}

// reserved query parameters that never become filters
var reservedParams = map[string]bool{
	"fields": true,
	"sort":   true,
	"page":   true,
	"limit":  true,
}

// ParseUserListOptions translates a user-list query string.
func ParseUserListOptions(values url.Values) (ListOptions, error) {
	return parseListOptions(values, usersTable)
}

// ParsePostListOptions translates a post-list query string.
func ParsePostListOptions(values url.Values) (ListOptions, error) {
	return parseListOptions(values, postsTable)
}

// ParseCommentListOptions translates a comment-list query string.
func ParseCommentListOptions(values url.Values) (ListOptions, error) {
	return parseListOptions(values, commentsTable)
}

// parseListOptions translates a query string into options scoped to one table.
// Unknown identifiers are a validation error rather than being passed through.
func parseListOptions(values url.Values, spec tableSpec) (ListOptions, error) {
	opts := ListOptions{page: 1, limit: defaultListLimit}

	if raw := values.Get("fields"); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			f = strings.TrimSpace(f)
			if f == "" {
				continue
			}
			opts.Fields = append(opts.Fields, f)
		}
	}

	if raw := values.Get("sort"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			desc := strings.HasPrefix(s, "-")
			name := strings.TrimPrefix(s, "-")
			expr, ok := spec.queryable[name]
			if !ok {
				return opts, models.NewValidationError(fmt.Sprintf("Cannot sort by '%s'.", name))
			}
			opts.sorts = append(opts.sorts, sortField{expr: expr, desc: desc})
		}
	}

	if raw := values.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return opts, models.NewValidationError("Invalid 'page' parameter.")
		}
		opts.page = page
	}

	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return opts, models.NewValidationError("Invalid 'limit' parameter.")
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}
		opts.limit = limit
	}

	for key, vals := range values {
		name, opName := splitFilterKey(key)
		if reservedParams[name] {
			continue
		}

		expr, ok := spec.queryable[name]
		if !ok {
			return opts, models.NewValidationError(fmt.Sprintf("Cannot filter by '%s'.", name))
		}
		op, ok := filterOps[opName]
		if !ok {
			return opts, models.NewValidationError(fmt.Sprintf("Unknown filter operator '%s'.", opName))
		}

		for _, v := range vals {
			opts.filters = append(opts.filters, filter{expr: expr, op: op, value: v})
		}
	}

	return opts, nil
}

// splitFilterKey turns "createdAt[gte]" into ("createdAt", "gte"); a bare key
// means equality.
func splitFilterKey(key string) (string, string) {
	open := strings.IndexByte(key, '[')
	if open < 0 || !strings.HasSuffix(key, "]") {
		return key, "eq"
	}
	return key[:open], key[open+1 : len(key)-1]
}

// buildListQuery renders the options into SQL. Filter values travel as
// placeholders; identifiers and operators come from the spec tables above.
// Extra filters let a repository pin scope conditions like ownership.
func buildListQuery(spec tableSpec, opts ListOptions, extra ...filter) (string, []interface{}, error) {
	var sb strings.Builder
	args := make([]interface{}, 0, len(opts.filters)+len(extra)+2)

	sb.WriteString("SELECT ")
	sb.WriteString(spec.selectClause)
	sb.WriteString(" FROM ")
	sb.WriteString(spec.from)

	conds := make([]string, 0, len(opts.filters)+len(extra))
	for _, f := range append(extra, opts.filters...) {
		args = append(args, f.value)
		conds = append(conds, fmt.Sprintf("%s %s $%d", f.expr, f.op, len(args)))
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}

	sb.WriteString(" ORDER BY ")
	if len(opts.sorts) == 0 {
		sb.WriteString(spec.defaultOrder)
	} else {
		orders := make([]string, 0, len(opts.sorts))
		for _, s := range opts.sorts {
			dir := "ASC"
			if s.desc {
				dir = "DESC"
			}
			orders = append(orders, s.expr+" "+dir)
		}
		sb.WriteString(strings.Join(orders, ", "))
	}

	limit := opts.limit
	if limit == 0 {
		limit = defaultListLimit
	}
	page := opts.page
	if page == 0 {
		page = 1
	}

	args = append(args, limit)
	sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	args = append(args, (page-1)*limit)
	sb.WriteString(fmt.Sprintf(" OFFSET $%d", len(args)))

	return sb.String(), args, nil
}

// ProjectFields reduces serialized items to the requested json fields. An
// empty request means no projection. Unknown names simply drop out.
func ProjectFields(items interface{}, fields []string) (interface{}, error) {
	if len(fields) == 0 {
		return items, nil
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return nil, models.NewInternalError(err.Error())
	}

	var generic []map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, models.NewInternalError(err.Error())
	}

	keep := make(map[string]bool, len(fields))
	for _, f := range fields {
		keep[f] = true
	}

	projected := make([]map[string]interface{}, 0, len(generic))
	for _, item := range generic {
		out := make(map[string]interface{}, len(keep))
		for k, v := range item {
			if keep[k] {
				out[k] = v
			}
		}
		projected = append(projected, out)
	}

	return projected, nil
}
