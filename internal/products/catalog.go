package product

import "github.com/shopspring/decimal"

// DefaultCatalog is the starter menu loaded by the seed command.
func DefaultCatalog() []CreateProductInput {
	item := func(name, description, price, category, image string) CreateProductInput {
		return CreateProductInput{
			Name:        name,
			Description: description,
			Price:       decimal.RequireFromString(price),
			Category:    category,
			ImageURL:    image,
		}
	}
	return []CreateProductInput{
		item("Mango Pickle", "Tangy raw mango pickle with mustard and red chilli, made the Andhra way.", "299", "Pickles", "https://images.abhiruchieats.com/products/mango-pickle.jpg"),
		item("Lemon Pickle", "Sun-cured lemon pieces in a spiced oil blend.", "249", "Pickles", "https://images.abhiruchieats.com/products/lemon-pickle.jpg"),
		item("Gongura Pickle", "Sorrel leaf pickle with garlic and chillies.", "279", "Pickles", "https://images.abhiruchieats.com/products/gongura-pickle.jpg"),
		item("Samosas", "Crisp pastry filled with spiced potato and peas. Pack of six.", "199", "Snacks", "https://images.abhiruchieats.com/products/samosas.jpg"),
		item("Murukku", "Crunchy rice flour spirals seasoned with sesame and cumin.", "149", "Snacks", "https://images.abhiruchieats.com/products/murukku.jpg"),
		item("Mysore Pak", "Rich gram flour fudge cooked in pure ghee.", "349", "Sweets", "https://images.abhiruchieats.com/products/mysore-pak.jpg"),
		item("Kaju Katli", "Thin cashew fudge diamonds finished with silver leaf.", "449", "Sweets", "https://images.abhiruchieats.com/products/kaju-katli.jpg"),
		item("Masala Chai", "Assam tea blend with cardamom, ginger and cloves.", "99", "Beverages", "https://images.abhiruchieats.com/products/masala-chai.jpg"),
		item("Filter Coffee Decoction", "Chicory blend decoction for South Indian filter coffee.", "179", "Beverages", "https://images.abhiruchieats.com/products/filter-coffee.jpg"),
		item("Hyderabadi Biryani", "Dum-cooked basmati rice layered with spiced chicken.", "399", "Main Course", "https://images.abhiruchieats.com/products/hyderabadi-biryani.jpg"),
		item("Pulihora", "Tamarind rice tempered with peanuts and curry leaves.", "229", "Main Course", "https://images.abhiruchieats.com/products/pulihora.jpg"),
		item("Podi Combo", "Gunpowder, curry leaf and peanut podi in one box.", "259", "Other", "https://images.abhiruchieats.com/products/podi-combo.jpg"),
	}
}
