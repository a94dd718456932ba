package service

import "fmt"

// ValidatePlaceOrder checks the request body field by field and returns a
// field-keyed error map, empty when the request is well formed. Keys for
// line items follow the items.<index>.<field> convention.
func ValidatePlaceOrder(req *PlaceOrderRequest) map[string][]string {
	errs := map[string][]string{}
	if req == nil {
		errs["body"] = append(errs["body"], "request body is required")
		return errs
	}

	if req.UserID <= 0 {
		errs["user_id"] = append(errs["user_id"], "user_id is required")
	}
	if len(req.Items) == 0 {
		errs["items"] = append(errs["items"], "items must contain at least 1 item")
	}
	for i, item := range req.Items {
		if item.ProductID <= 0 {
			field := fmt.Sprintf("items.%d.product_id", i)
			errs[field] = append(errs[field], "product_id is required")
		}
		if item.Quantity < 1 {
			field := fmt.Sprintf("items.%d.quantity", i)
			errs[field] = append(errs[field], "quantity must be at least 1")
		}
		if item.Price < 0 {
			field := fmt.Sprintf("items.%d.price", i)
			errs[field] = append(errs[field], "price must be at least 0")
		}
	}
	if req.Total < 0 {
		errs["total"] = append(errs["total"], "total must be at least 0")
	}
	return errs
}
