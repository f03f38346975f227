package square

// ShippingOption is a service level we can attach to a draft order as a
// shipment fulfillment. Square has no priced rate table for orders; shipping
// is expressed as a SHIPMENT fulfillment with a carrier and shipping type, so
// the catalog of options is fixed here.
type ShippingOption struct {
	ID           string
	Name         string
	Carrier      string
	ShippingType string
}

var shippingOptions = []ShippingOption{
	{ID: "standard-ground", Name: "Standard Ground", Carrier: "USPS", ShippingType: "Ground"},
	{ID: "expedited", Name: "Expedited", Carrier: "UPS", ShippingType: "2nd Day Air"},
}

// ShippingOptions lists the available shipment service levels, cheapest
// first. Callers that need a default take the first entry.
func (c *Client) ShippingOptions() []ShippingOption {
	out := make([]ShippingOption, len(shippingOptions))
	copy(out, shippingOptions)
	return out
}
