package events

// Inventory event names
const (
	ProductCreated   = "product:created"
	ProductUpdated   = "product:updated"
	ProductDeleted   = "product:deleted"
	ProductsSaved    = "products:saved"
	ProductsImported = "products:imported"
	ProductsCleared  = "products:cleared"
	ProductsReset    = "products:reset"
)

// InventoryEvents lists every event the inventory service publishes
var InventoryEvents = []string{
	ProductCreated,
	ProductUpdated,
	ProductDeleted,
	ProductsSaved,
	ProductsImported,
	ProductsCleared,
	ProductsReset,
}
