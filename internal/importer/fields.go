package importer

// Accepted header aliases per field, tried in order.
var (
	nameAliases         = []string{"product_name", "Product Name"}
	skuAliases          = []string{"sku", "SKU"}
	stockAliases        = []string{"stock", "Stock", "stock_quantity", "Stock Quantity"}
	categoryAliases     = []string{"category", "Category"}
	brandAliases        = []string{"brand", "Brand"}
	descriptionAliases  = []string{"description", "Description"}
	reorderLevelAliases = []string{"reorder_level", "Reorder Level"}
	costPriceAliases    = []string{"cost_price", "Cost Price", "unit_price", "Unit Price"}
	sellingPriceAliases = []string{"selling_price", "Selling Price"}
	hsnCodeAliases      = []string{"hsn_code", "HSN Code"}
	gstRateAliases      = []string{"gst_rate", "GST Rate"}
)
