package model

// Category определяет направление транзакции
type Category string

const (
	CategoryIncome  Category = "income"
	CategoryExpense Category = "expense"
)

// IncomeSubcategories — закрытый набор подкатегорий доходов
var IncomeSubcategories = []string{
	"sales",
	"services",
	"consulting",
	"other_income",
}

// ExpenseSubcategories — закрытый набор подкатегорий расходов
var ExpenseSubcategories = []string{
	"salaries",
	"rent",
	"utilities",
	"marketing",
	"it_services",
	"office_supplies",
	"travel",
	"professional_services",
	"taxes",
	"insurance",
	"other_expenses",
}

// SubcategoryLabels — отображаемые названия подкатегорий для отчетов
var SubcategoryLabels = map[string]string{
	"sales":                 "Продажи",
	"services":              "Услуги",
	"consulting":            "Консалтинг",
	"other_income":          "Прочие доходы",
	"salaries":              "Зарплаты",
	"rent":                  "Аренда",
	"utilities":             "Коммунальные услуги",
	"marketing":             "Маркетинг",
	"it_services":           "IT услуги",
	"office_supplies":       "Офисные принадлежности",
	"travel":                "Командировки",
	"professional_services": "Профессиональные услуги",
	"taxes":                 "Налоги",
	"insurance":             "Страхование",
	"other_expenses":        "Прочие расходы",
}

// ValidCategory проверяет, что категория входит в допустимый набор
func ValidCategory(c Category) bool {
	return c == CategoryIncome || c == CategoryExpense
}

// Subcategories возвращает закрытый набор подкатегорий для категории
func Subcategories(c Category) []string {
	switch c {
	case CategoryIncome:
		return IncomeSubcategories
	case CategoryExpense:
		return ExpenseSubcategories
	default:
		return nil
	}
}

// ValidSubcategory проверяет, что подкатегория принадлежит набору своей категории
func ValidSubcategory(c Category, sub string) bool {
	for _, s := range Subcategories(c) {
		if s == sub {
			return true
		}
	}
	return false
}

// SubcategoryLabel возвращает отображаемое название подкатегории
func SubcategoryLabel(sub string) string {
	if label, ok := SubcategoryLabels[sub]; ok {
		return label
	}
	return sub
}
