package models

// Islands острова Багамского архипелага, доступные в фильтрах.
var Islands = []string{
	"New Providence", "Grand Bahama", "Abaco", "Eleuthera", "Exuma",
	"Andros", "Cat Island", "Long Island", "San Salvador", "Rum Cay",
	"Crooked Island", "Acklins", "Mayaguana", "Inagua", "Bimini",
	"Berry Islands", "Ragged Island",
}

// Categories категории бизнеса.
var Categories = []string{
	"Restaurant", "Hotel", "Tour Operator", "Transportation", "Retail",
	"Beauty & Spa", "Health & Medical", "Automotive", "Real Estate",
	"Legal Services", "Financial Services", "Construction", "Entertainment",
	"Education", "Technology", "Other",
}

// IsIsland проверяет, что название острова есть в справочнике.
func IsIsland(name string) bool {
	return contains(Islands, name)
}

// IsCategory проверяет, что категория есть в справочнике.
func IsCategory(name string) bool {
	return contains(Categories, name)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
