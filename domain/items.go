package domain

// DemoItems returns the fixed listing served by the items endpoint.
func DemoItems() []Item {
	description := "This is item one."
	return []Item{
		{ID: 1, Name: "Item One", Description: &description},
		{ID: 2, Name: "Item Two"},
	}
}
