// Package seed bootstraps a new owner with default account types, a
// category forest and a cash account.
package seed

import (
	"strings"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
)

// Locale selects the language of seeded names.
type Locale string

// Supported locales.
const (
	English    Locale = "en"
	Vietnamese Locale = "vi"
)

// ParseLocale accepts en or vi in any case. An empty string means English.
func ParseLocale(s string) (Locale, error) {
	switch l := Locale(strings.ToLower(strings.TrimSpace(s))); l {
	case "":
		return English, nil
	case English, Vietnamese:
		return l, nil
	}
	return "", common.BadRequestf("unsupported locale %q (want en or vi)", s)
}

// Node is one seeded category and its children.
type Node struct {
	Name     string
	Type     model.CategoryType
	Children []Node
}

type label struct {
	en, vi string
}

func (l label) in(locale Locale) string {
	if locale == Vietnamese {
		return l.vi
	}
	return l.en
}

type entry struct {
	label
	children []label
}

var defaultAccount = label{en: "Wallet", vi: "Ví"}

// The first account type holds the seeded cash account.
var accountTypeLabels = []label{
	{"Cash", "Tiền mặt"},
	{"Bank account", "Tài khoản ngân hàng"},
	{"Credit card", "Thẻ tín dụng"},
	{"E-wallet", "Ví điện tử"},
	{"Savings", "Sổ tiết kiệm"},
	{"Investment", "Khoản đầu tư"},
}

var incomeEntries = []entry{
	{label: label{"Salary", "Lương"}},
	{label: label{"Bonus", "Thưởng"}},
	{label: label{"Tips", "Tiền boa"}},
	{label: label{"Business", "Kinh doanh"}},
	{label: label{"Interest", "Lãi tiết kiệm"}},
	{label: label{"Investment", "Đầu tư"}},
	{label: label{"Gift", "Quà tặng"}},
	{label: label{"Refund", "Hoàn tiền"}},
	{label: label{"Borrow", "Đi vay"}},
	{label: label{"Collecting debts", "Thu nợ"}},
	{label: label{"Other income", "Thu nhập khác"}},
}

var expenseEntries = []entry{
	{label: label{"Food & Drink", "Ăn uống"}, children: []label{
		{"Breakfast", "Ăn sáng"},
		{"Lunch", "Ăn trưa"},
		{"Dinner", "Ăn tối"},
		{"Groceries", "Đi chợ, siêu thị"},
		{"Coffee", "Cà phê"},
		{"Dining out", "Ăn ngoài"},
	}},
	{label: label{"Transportation", "Di chuyển"}, children: []label{
		{"Fuel", "Xăng"},
		{"Parking", "Gửi xe"},
		{"Taxi", "Taxi / Grab"},
		{"Public transport", "Xe buýt, tàu"},
		{"Vehicle maintenance", "Bảo dưỡng xe"},
	}},
	{label: label{"Housing", "Nhà ở"}, children: []label{
		{"Rent", "Tiền thuê nhà"},
		{"Electricity", "Tiền điện"},
		{"Water", "Tiền nước"},
		{"Repairs", "Sửa chữa"},
	}},
	{label: label{"Bills & Utilities", "Hóa đơn & tiện ích"}, children: []label{
		{"Phone bill", "Hóa đơn điện thoại"},
		{"Internet bill", "Hóa đơn mạng"},
		{"TV", "Truyền hình"},
		{"Subscriptions", "Dịch vụ định kỳ"},
	}},
	{label: label{"Shopping", "Mua sắm"}, children: []label{
		{"Clothes", "Quần áo"},
		{"Shoes", "Giày dép"},
		{"Electronics", "Đồ điện tử"},
		{"Household items", "Đồ gia dụng"},
	}},
	{label: label{"Health", "Sức khỏe"}, children: []label{
		{"Medicine", "Thuốc men"},
		{"Clinic", "Khám bệnh"},
		{"Insurance", "Bảo hiểm sức khỏe"},
		{"Fitness", "Phòng gym, thể thao"},
	}},
	{label: label{"Education", "Học tập"}, children: []label{
		{"Tuition", "Học phí"},
		{"Books", "Sách vở"},
		{"Courses", "Khóa học"},
		{"Stationery", "Văn phòng phẩm"},
	}},
	{label: label{"Entertainment", "Giải trí"}, children: []label{
		{"Movies", "Xem phim"},
		{"Games", "Trò chơi"},
		{"Travel", "Du lịch"},
		{"Karaoke", "Karaoke"},
	}},
	{label: label{"Family", "Gia đình"}, children: []label{
		{"Childcare", "Nuôi con"},
		{"Parents", "Hỗ trợ cha mẹ"},
		{"Pets", "Thú cưng"},
		{"Gifts", "Quà biếu"},
	}},
	{label: label{"Debt & Loan", "Nợ & vay"}, children: []label{
		{"Loan repayment", "Trả nợ"},
		{"Interest payment", "Trả lãi"},
		{"Lending", "Cho vay"},
	}},
	{label: label{"Donations", "Quyên góp"}, children: []label{
		{"Charity", "Từ thiện"},
		{"Religious offering", "Cúng dường, làm lễ"},
	}},
	{label: label{"Other expenses", "Chi phí khác"}, children: []label{
		{"Unexpected expenses", "Chi phí phát sinh"},
		{"Lost money", "Mất tiền"},
	}},
}

// DefaultForest returns the seeded categories for locale, income first.
func DefaultForest(locale Locale) []Node {
	forest := make([]Node, 0, len(incomeEntries)+len(expenseEntries))
	forest = appendEntries(forest, incomeEntries, model.CategoryTypeIncome, locale)
	return appendEntries(forest, expenseEntries, model.CategoryTypeExpense, locale)
}

func appendEntries(forest []Node, entries []entry, catType model.CategoryType, locale Locale) []Node {
	for _, e := range entries {
		node := Node{Name: e.in(locale), Type: catType}
		for _, child := range e.children {
			node.Children = append(node.Children, Node{Name: child.in(locale), Type: catType})
		}
		forest = append(forest, node)
	}
	return forest
}

// DefaultAccountTypes returns the seeded account type names for locale in sort order.
func DefaultAccountTypes(locale Locale) []string {
	names := make([]string, len(accountTypeLabels))
	for i, l := range accountTypeLabels {
		names[i] = l.in(locale)
	}
	return names
}

// DefaultAccountName is the name of the seeded cash account.
func DefaultAccountName(locale Locale) string {
	return defaultAccount.in(locale)
}
