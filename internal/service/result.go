package service

// Code classifies the outcome of a store workflow.
type Code string

const (
	CodeOK                  Code = "OK"
	CodeProductNotFound     Code = "PRODUCT_NOT_FOUND"
	CodeInvalidQuantity     Code = "INVALID_QUANTITY"
	CodeInsufficientStock   Code = "INSUFFICIENT_STOCK"
	CodeLimitExceeded       Code = "LIMIT_EXCEEDED"
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
	CodePendingOrderExists  Code = "PENDING_ORDER_EXISTS"
	CodeAlreadyPending      Code = "ALREADY_PENDING"
	CodeOperationConflict   Code = "OPERATION_CONFLICT"
	CodeUserNotFound        Code = "USER_NOT_FOUND"
	CodeNotEligible         Code = "NOT_ELIGIBLE"
	CodeFeatureDisabled     Code = "FEATURE_DISABLED"
	CodeStoreUnavailable    Code = "STORE_UNAVAILABLE"
	CodeInvalidRecipient    Code = "INVALID_RECIPIENT"
	CodeInvalidName         Code = "INVALID_NAME"
	CodeNameTaken           Code = "NAME_TAKEN"
	CodeAlreadyDrawn        Code = "ALREADY_DRAWN"
	CodeBannerNotFound      Code = "BANNER_NOT_FOUND"
)

var messages = map[Code]string{
	CodeProductNotFound:     "product not found",
	CodeInvalidQuantity:     "quantity must be greater than 0",
	CodeInsufficientStock:   "insufficient stock",
	CodeLimitExceeded:       "quantity exceeds the per-order limit",
	CodeInsufficientBalance: "insufficient balance",
	CodePendingOrderExists:  "you have an unclaimed order, claim it in game before buying again",
	CodeAlreadyPending:      "this request is already waiting to be claimed in game",
	CodeOperationConflict:   "the operation conflicted with another request, please retry",
	CodeUserNotFound:        "user not found",
	CodeNotEligible:         "not eligible",
	CodeFeatureDisabled:     "feature disabled",
	CodeStoreUnavailable:    "store temporarily unavailable, please retry",
	CodeInvalidRecipient:    "you cannot send a gift to yourself",
	CodeInvalidName:         "invalid user name",
	CodeNameTaken:           "user name already exists",
	CodeAlreadyDrawn:        "you have already drawn today",
	CodeBannerNotFound:      "you do not own this banner",
}

// Result is the structured outcome every store workflow returns.
type Result struct {
	Success    bool   `json:"success"`
	Code       Code   `json:"code"`
	Message    string `json:"message"`
	TotalPrice *int64 `json:"total_price,omitempty"`
}

func ok(message string) *Result {
	return &Result{Success: true, Code: CodeOK, Message: message}
}

func fail(code Code) *Result {
	return &Result{Code: code, Message: messages[code]}
}

// failf overrides the default message of code.
func failf(code Code, message string) *Result {
	return &Result{Code: code, Message: message}
}
