package entity

// Expense category constants for ExpenseClaim.Category.
const (
	CategoryTravel         = "TRAVEL"
	CategoryMeal           = "MEAL"
	CategoryAccommodation  = "ACCOMMODATION"
	CategoryEquipment      = "EQUIPMENT"
	CategoryTransportation = "TRANSPORTATION"
	CategoryEntertainment  = "ENTERTAINMENT"
	CategoryCommunication  = "COMMUNICATION"
	CategoryOther          = "OTHER"
)
