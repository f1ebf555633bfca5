package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EntityView is the default read-only listing for one table.
type EntityView struct {
	Name          string
	Table         string
	Columns       []string
	OrderBy       string
	SearchColumns []string
}

// Registry maps entity names to their default listing. Entries are fixed at startup.
type Registry struct {
	views map[string]EntityView
}

// NewRegistry builds a registry from views, rejecting duplicates and incomplete entries.
func NewRegistry(views ...EntityView) (*Registry, error) {
	r := &Registry{views: make(map[string]EntityView, len(views))}
	for _, v := range views {
		if v.Name == "" || v.Table == "" || len(v.Columns) == 0 {
			return nil, fmt.Errorf("entity view %q is incomplete", v.Name)
		}
		if _, dup := r.views[v.Name]; dup {
			return nil, fmt.Errorf("entity %q registered twice", v.Name)
		}
		if v.OrderBy == "" {
			v.OrderBy = "id"
		}
		r.views[v.Name] = v
	}
	return r, nil
}

// Lookup returns the view registered under name.
func (r *Registry) Lookup(name string) (EntityView, bool) {
	v, ok := r.views[name]
	return v, ok
}

// Names returns the registered entity names in alphabetical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.views))
	for name := range r.views {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StoreRegistry covers every table in the schema.
var StoreRegistry = mustRegistry(
	EntityView{Name: "products", Table: "products",
		Columns:       []string{"id", "item_code", "product_name", "company_name", "specification"},
		OrderBy:       "item_code",
		SearchColumns: []string{"item_code", "product_name", "company_name"}},
	EntityView{Name: "vendors", Table: "vendors",
		Columns:       []string{"id", "vendor_code", "vendor_name", "phone", "company_name"},
		OrderBy:       "vendor_code",
		SearchColumns: []string{"vendor_code", "vendor_name", "company_name"}},
	EntityView{Name: "receivings", Table: "stock_receivings",
		Columns:       []string{"id", "order_number", "order_date", "vendor_code", "vendor_name", "total_qty", "total_amount"},
		OrderBy:       "order_number DESC",
		SearchColumns: []string{"order_number", "vendor_code", "vendor_name"}},
	EntityView{Name: "receiving_lines", Table: "stock_receiving_details",
		Columns:       []string{"id", "order_number", "order_date", "vendor_id", "product_id", "barcode", "qty", "rate", "sale_rate", "expire_date"},
		SearchColumns: []string{"order_number", "barcode"}},
	EntityView{Name: "stock", Table: "item_stock",
		Columns: []string{"id", "order_number", "vendor_code", "item_code", "product_name", "company_name", "barcode",
			"total_qty", "sale_qty", "sale_return_qty", "stock_return_qty", "available_qty", "sale_rate"},
		OrderBy:       "order_number, barcode",
		SearchColumns: []string{"barcode", "item_code", "product_name"}},
	EntityView{Name: "sales", Table: "sales",
		Columns:       []string{"id", "sale_number", "sale_date", "customer_name", "customer_contact", "total_quantity", "total_amount", "cash_received", "cash_return"},
		OrderBy:       "sale_number DESC",
		SearchColumns: []string{"sale_number", "customer_name", "customer_contact"}},
	EntityView{Name: "sale_lines", Table: "sale_details",
		Columns:       []string{"id", "sale_id", "line_number", "barcode", "item_code", "product_name", "qty", "sale_rate", "amount"},
		SearchColumns: []string{"barcode", "item_code", "product_name"}},
	EntityView{Name: "returns", Table: "sale_returns",
		Columns:       []string{"id", "return_number", "sale_number", "customer_name", "return_date", "reason", "total_quantity", "total_amount", "amount_refunded"},
		OrderBy:       "return_number DESC",
		SearchColumns: []string{"return_number", "sale_number", "customer_name"}},
	EntityView{Name: "return_lines", Table: "sale_return_items",
		Columns:       []string{"id", "return_id", "line_number", "barcode", "description", "qty", "sale_amount", "total_amount"},
		SearchColumns: []string{"barcode", "description"}},
	EntityView{Name: "exchanges", Table: "exchange_sales",
		Columns:       []string{"id", "exchange_number", "sale_id", "return_id", "exchange_date", "total_qty", "total_amount", "refund_amount", "cash_received", "cash_return"},
		SearchColumns: []string{"exchange_number"}},
	EntityView{Name: "exchange_lines", Table: "exchange_sale_details",
		Columns:       []string{"id", "exchange_sale_id", "product_id", "barcode", "qty", "amount"},
		SearchColumns: []string{"barcode"}},
)

func mustRegistry(views ...EntityView) *Registry {
	r, err := NewRegistry(views...)
	if err != nil {
		panic(err)
	}
	return r
}

// EntityPage is a listing with values rendered as text, in column order. NULL is nil.
type EntityPage struct {
	Entity  string      `json:"entity"`
	Columns []string    `json:"columns"`
	Rows    [][]*string `json:"rows"`
}

const (
	DefaultEntityLimit = 100
	MaxEntityLimit     = 1000
)

// BuildListQuery renders the listing SQL for v. A non-empty search adds a case-insensitive
// substring match over the search columns as parameter $1.
func BuildListQuery(v EntityView, search string, limit int) (string, []any) {
	if limit <= 0 {
		limit = DefaultEntityLimit
	}
	if limit > MaxEntityLimit {
		limit = MaxEntityLimit
	}

	cols := make([]string, len(v.Columns))
	for i, c := range v.Columns {
		cols[i] = c + "::TEXT"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(cols, ", "), v.Table)

	var args []any
	search = strings.TrimSpace(search)
	if search != "" && len(v.SearchColumns) > 0 {
		conds := make([]string, len(v.SearchColumns))
		for i, c := range v.SearchColumns {
			conds[i] = c + "::TEXT ILIKE $1"
		}
		fmt.Fprintf(&b, " WHERE (%s)", strings.Join(conds, " OR "))
		args = append(args, "%"+search+"%")
	}
	fmt.Fprintf(&b, " ORDER BY %s LIMIT %d", v.OrderBy, limit)
	return b.String(), args
}

// RegistryService serves registry listings from the database.
type RegistryService interface {
	Entities() []string
	ListEntity(ctx context.Context, name, search string, limit int) (*EntityPage, error)
}

type registryService struct {
	pool     *pgxpool.Pool
	registry *Registry
}

func NewRegistryService(pool *pgxpool.Pool, registry *Registry) RegistryService {
	if registry == nil {
		registry = StoreRegistry
	}
	return &registryService{pool: pool, registry: registry}
}

func (s *registryService) Entities() []string { return s.registry.Names() }

func (s *registryService) ListEntity(ctx context.Context, name, search string, limit int) (*EntityPage, error) {
	v, ok := s.registry.Lookup(name)
	if !ok {
		return nil, notFoundf("unknown entity %q", name)
	}

	query, args := BuildListQuery(v, search, limit)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", name, err)
	}
	defer rows.Close()

	page := &EntityPage{Entity: v.Name, Columns: v.Columns, Rows: [][]*string{}}
	for rows.Next() {
		values := make([]*string, len(v.Columns))
		dest := make([]any, len(values))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", name, err)
		}
		page.Rows = append(page.Rows, values)
	}
	return page, rows.Err()
}
