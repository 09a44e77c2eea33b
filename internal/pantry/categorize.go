package pantry

import "strings"

const (
	CategoryDairy      = "Dairy"
	CategoryProduce    = "Produce"
	CategoryMeat       = "Meat & Seafood"
	CategoryGrains     = "Grains & Pasta"
	CategoryCanned     = "Canned Goods"
	CategoryFrozen     = "Frozen"
	CategorySnacks     = "Snacks"
	CategoryBeverages  = "Beverages"
	CategoryCondiments = "Condiments & Oils"
	CategoryBaking     = "Baking"
	CategoryOther      = "Other"
)

// Categories lists every valid category in display order.
var Categories = []string{
	CategoryDairy, CategoryProduce, CategoryMeat, CategoryGrains, CategoryCanned,
	CategoryFrozen, CategorySnacks, CategoryBeverages, CategoryCondiments,
	CategoryBaking, CategoryOther,
}

// Categorize returns the pantry category for the given item name.
// It performs case-insensitive matching: exact match first, then substring match.
// Falls back to "Other" if no match is found.
func Categorize(itemName string) string {
	name := strings.ToLower(strings.TrimSpace(itemName))
	if name == "" {
		return CategoryOther
	}

	if cat, ok := exactMatch[name]; ok {
		return cat
	}

	// Ordered longer/more-specific first.
	for _, entry := range substringMatches {
		if strings.Contains(name, entry.keyword) {
			return entry.category
		}
	}

	return CategoryOther
}

var exactMatch = map[string]string{
	"apple":     CategoryProduce,
	"apples":    CategoryProduce,
	"banana":    CategoryProduce,
	"bananas":   CategoryProduce,
	"lemon":     CategoryProduce,
	"lemons":    CategoryProduce,
	"avocado":   CategoryProduce,
	"tomato":    CategoryProduce,
	"tomatoes":  CategoryProduce,
	"potato":    CategoryProduce,
	"potatoes":  CategoryProduce,
	"onion":     CategoryProduce,
	"onions":    CategoryProduce,
	"garlic":    CategoryProduce,
	"carrots":   CategoryProduce,
	"spinach":   CategoryProduce,
	"broccoli":  CategoryProduce,
	"mushrooms": CategoryProduce,
	"ginger":    CategoryProduce,

	"milk":         CategoryDairy,
	"eggs":         CategoryDairy,
	"butter":       CategoryDairy,
	"cheese":       CategoryDairy,
	"yogurt":       CategoryDairy,
	"cream cheese": CategoryDairy,
	"sour cream":   CategoryDairy,

	"chicken":     CategoryMeat,
	"beef":        CategoryMeat,
	"pork":        CategoryMeat,
	"bacon":       CategoryMeat,
	"sausage":     CategoryMeat,
	"salmon":      CategoryMeat,
	"shrimp":      CategoryMeat,
	"ground beef": CategoryMeat,

	"rice":      CategoryGrains,
	"pasta":     CategoryGrains,
	"spaghetti": CategoryGrains,
	"noodles":   CategoryGrains,
	"bread":     CategoryGrains,
	"oats":      CategoryGrains,
	"oatmeal":   CategoryGrains,
	"quinoa":    CategoryGrains,
	"cereal":    CategoryGrains,
	"tortillas": CategoryGrains,

	"tuna":            CategoryCanned,
	"soup":            CategoryCanned,
	"canned beans":    CategoryCanned,
	"canned tomatoes": CategoryCanned,
	"chickpeas":       CategoryCanned,

	"ice cream":      CategoryFrozen,
	"frozen pizza":   CategoryFrozen,
	"frozen peas":    CategoryFrozen,
	"frozen waffles": CategoryFrozen,

	"chips":    CategorySnacks,
	"crackers": CategorySnacks,
	"cookies":  CategorySnacks,
	"popcorn":  CategorySnacks,
	"pretzels": CategorySnacks,
	"nuts":     CategorySnacks,

	"water":  CategoryBeverages,
	"juice":  CategoryBeverages,
	"coffee": CategoryBeverages,
	"tea":    CategoryBeverages,
	"soda":   CategoryBeverages,

	"olive oil":     CategoryCondiments,
	"oil":           CategoryCondiments,
	"vinegar":       CategoryCondiments,
	"ketchup":       CategoryCondiments,
	"mustard":       CategoryCondiments,
	"mayonnaise":    CategoryCondiments,
	"soy sauce":     CategoryCondiments,
	"hot sauce":     CategoryCondiments,
	"honey":         CategoryCondiments,
	"salt":          CategoryCondiments,
	"pepper":        CategoryCondiments,
	"peanut butter": CategoryCondiments,

	"flour":         CategoryBaking,
	"sugar":         CategoryBaking,
	"brown sugar":   CategoryBaking,
	"baking soda":   CategoryBaking,
	"baking powder": CategoryBaking,
	"yeast":         CategoryBaking,
	"vanilla":       CategoryBaking,
	"cocoa powder":  CategoryBaking,
}

type substringEntry struct {
	keyword  string
	category string
}

var substringMatches = []substringEntry{
	{"frozen", CategoryFrozen},
	{"ice cream", CategoryFrozen},

	{"canned", CategoryCanned},
	{"tinned", CategoryCanned},

	{"chicken breast", CategoryMeat},
	{"chicken thigh", CategoryMeat},
	{"ground beef", CategoryMeat},
	{"ground turkey", CategoryMeat},
	{"pork chop", CategoryMeat},
	{"fillet", CategoryMeat},

	{"cream cheese", CategoryDairy},
	{"greek yogurt", CategoryDairy},
	{"almond milk", CategoryDairy},
	{"oat milk", CategoryDairy},
	{"yogurt", CategoryDairy},
	{"cheese", CategoryDairy},
	{"milk", CategoryDairy},
	{"butter", CategoryDairy},
	{"cream", CategoryDairy},
	{"egg", CategoryDairy},

	{"baking", CategoryBaking},
	{"flour", CategoryBaking},
	{"sugar", CategoryBaking},
	{"chocolate chip", CategoryBaking},

	{"olive oil", CategoryCondiments},
	{"sauce", CategoryCondiments},
	{"dressing", CategoryCondiments},
	{"vinegar", CategoryCondiments},
	{"oil", CategoryCondiments},
	{"spice", CategoryCondiments},
	{"seasoning", CategoryCondiments},

	{"sparkling water", CategoryBeverages},
	{"juice", CategoryBeverages},
	{"coffee", CategoryBeverages},
	{"tea", CategoryBeverages},
	{"soda", CategoryBeverages},
	{"drink", CategoryBeverages},

	{"granola bar", CategorySnacks},
	{"trail mix", CategorySnacks},
	{"chip", CategorySnacks},
	{"cracker", CategorySnacks},
	{"cookie", CategorySnacks},
	{"pretzel", CategorySnacks},
	{"candy", CategorySnacks},
	{"chocolate", CategorySnacks},

	{"bread", CategoryGrains},
	{"rice", CategoryGrains},
	{"pasta", CategoryGrains},
	{"noodle", CategoryGrains},
	{"cereal", CategoryGrains},
	{"oat", CategoryGrains},
	{"tortilla", CategoryGrains},

	{"salad mix", CategoryProduce},
	{"sweet potato", CategoryProduce},
	{"bell pepper", CategoryProduce},
	{"berries", CategoryProduce},
	{"berry", CategoryProduce},
	{"lettuce", CategoryProduce},
	{"spinach", CategoryProduce},
	{"apple", CategoryProduce},
	{"banana", CategoryProduce},
	{"tomato", CategoryProduce},
	{"potato", CategoryProduce},
	{"onion", CategoryProduce},
	{"carrot", CategoryProduce},
	{"fruit", CategoryProduce},

	{"bean", CategoryCanned},
	{"soup", CategoryCanned},
}
