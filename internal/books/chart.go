package books

// System account codes the posting rules resolve by code.
const (
	CodeCash             = "1001"
	CodeBank             = "1002"
	CodeInventory        = "1003"
	CodeGSTInput         = "1006"
	CodeSundryDebtors    = "1007"
	CodeSundryCreditors  = "2001"
	CodeGSTOutput        = "2005"
	CodeOwnersCapital    = "3001"
	CodeRetainedEarnings = "3002"
	CodeSalesRevenue     = "4001"
	CodeDiscountReceived = "4004"
	CodePurchase         = "5001"
	CodeDiscountAllowed  = "5014"
)

// ControlAccountCode returns the control account for parties of type t.
func ControlAccountCode(t PartyType) string {
	if t == PartySupplier {
		return CodeSundryCreditors
	}
	return CodeSundryDebtors
}
