package gateway

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/shopauth/internal/resource/config"
	"github.com/dmitrijs2005/shopauth/internal/resource/policy"
)

// Route is one forwarded endpoint. Anonymous routes skip the guard; an
// empty Policy on a guarded route only requires authentication.
type Route struct {
	Method    string
	Path      string
	Policy    string
	Anonymous bool
}

// OrdersRoutes are the endpoints of the orders service. Every one of them
// requires a token.
func OrdersRoutes() []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/api/orders", Policy: policy.AdminOrOrderManager},
		{Method: http.MethodGet, Path: "/api/orders/my-orders", Policy: policy.AdminOrOrderManagerOrUser},
		{Method: http.MethodGet, Path: "/api/orders/{id}", Policy: policy.AdminOrOrderManagerOrUser},
		{Method: http.MethodPost, Path: "/api/orders", Policy: policy.AdminOrOrderManagerOrUser},
	}
}

// CatalogRoutes are the endpoints of the catalog service. Reads are open,
// writes are limited to product managers and admins.
func CatalogRoutes() []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/api/products", Anonymous: true},
		{Method: http.MethodGet, Path: "/api/products/{id}", Anonymous: true},
		{Method: http.MethodPost, Path: "/api/products", Policy: policy.AdminOrProductManager},
		{Method: http.MethodPut, Path: "/api/products/{id}", Policy: policy.AdminOrProductManager},
		{Method: http.MethodDelete, Path: "/api/products/{id}", Policy: policy.AdminOrProductManager},
		{Method: http.MethodPost, Path: "/api/products/{id}", Policy: policy.AdminOrProductManager},
	}
}

// ForService returns the route table and policy set for a service name.
func ForService(service string) ([]Route, []policy.Policy, error) {
	switch service {
	case config.ServiceOrders:
		return OrdersRoutes(), policy.OrdersPolicies(), nil
	case config.ServiceCatalog:
		return CatalogRoutes(), policy.CatalogPolicies(), nil
	default:
		return nil, nil, fmt.Errorf("unknown service %q", service)
	}
}
