package message

// NutritionTips are snack and diet tips keyed by trimester.
var NutritionTips = map[int][]string{
	1: {
		"Try ginger tea or crackers to help with morning sickness",
		"Small, frequent meals can help with nausea",
		"Focus on folate-rich foods like leafy greens and citrus fruits",
	},
	2: {
		"Include protein-rich snacks like nuts or yogurt",
		"Calcium is important - try cheese or fortified plant milks",
		"Iron-rich snacks like dried apricots can help with energy",
	},
	3: {
		"Fiber-rich snacks like apples can help with digestion",
		"Smaller portions more often may be more comfortable",
		"Hydrating snacks like watermelon can help with swelling",
	},
}

// DeficiencyTips are keyed by the deficiency name stored on a nutrition profile.
var DeficiencyTips = map[string]string{
	"iron":     "Include red meat, spinach, or iron-fortified cereals in your diet",
	"calcium":  "Dairy products, almonds, and leafy greens are great sources",
	"folate":   "Eat more lentils, asparagus, and avocados",
	"vitaminD": "Get some sunlight and consider fatty fish or fortified foods",
}

// WeeklyUpdates holds milestone texts for selected pregnancy weeks.
var WeeklyUpdates = map[int]string{
	1:  "Your baby is just starting development! Focus on taking prenatal vitamins.",
	4:  "Baby's neural tube is forming. Ensure adequate folic acid intake.",
	8:  "Baby is now the size of a raspberry! Tiny limbs are forming.",
	12: "First trimester almost done! Baby can now make tiny movements.",
	16: "You might feel baby's first flutters soon!",
	20: "Halfway there! Baby can hear your voice now.",
	24: "Baby is practicing breathing movements.",
	28: "Third trimester begins! Baby's eyes can open and close.",
	32: "Baby is gaining weight rapidly now.",
	36: "Baby is getting ready for birth! Position may be head down.",
	40: "Any day now! Baby is fully developed and ready to meet you.",
}
