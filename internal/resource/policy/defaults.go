package policy

import "github.com/dmitrijs2005/shopauth/internal/accesstoken"

// Policy names used by the shop's resource services.
const (
	Admin                     = "Admin"
	User                      = "User"
	OrderManager              = "OrderManager"
	ProductManager            = "ProductManager"
	AdminOrOrderManager       = "AdminOrOrderManager"
	AdminOrOrderManagerOrUser = "AdminOrOrderManagerOrUser"
	AdminOrProductManager     = "AdminOrProductManager"
)

// OrdersPolicies is the policy set of the orders service.
func OrdersPolicies() []Policy {
	return []Policy{
		AnyOf(Admin, accesstoken.RoleAdmin),
		AnyOf(OrderManager, accesstoken.RoleOrderManager),
		AnyOf(User, accesstoken.RoleUser),
		AnyOf(AdminOrOrderManager, accesstoken.RoleAdmin, accesstoken.RoleOrderManager),
		AnyOf(AdminOrOrderManagerOrUser, accesstoken.RoleAdmin, accesstoken.RoleOrderManager, accesstoken.RoleUser),
	}
}

// CatalogPolicies is the policy set of the catalog service.
func CatalogPolicies() []Policy {
	return []Policy{
		AnyOf(Admin, accesstoken.RoleAdmin),
		AnyOf(ProductManager, accesstoken.RoleProductManager),
		AnyOf(User, accesstoken.RoleUser),
		AnyOf(AdminOrProductManager, accesstoken.RoleAdmin, accesstoken.RoleProductManager),
	}
}
