package platformhandler

// Sealed handles travel base64-encoded; proofs are hex commitments.

type CreateAuctionBody struct {
	Seller          string `json:"seller"           binding:"required"        example:"0x7099…79c8"`
	ItemName        string `json:"item_name"        binding:"required"        example:"测试拍卖品"`
	ItemDescription string `json:"item_description"                          example:"这是一个测试拍卖品"`
	SealedReserve   string `json:"sealed_reserve"   binding:"required"`
	ReserveProof    string `json:"reserve_proof"    binding:"required"`
	StartingPrice   string `json:"starting_price"                            example:"100000000000000000"`
	Duration        int64  `json:"duration"         binding:"required"        example:"86400"`
}

type PlaceBidBody struct {
	Bidder       string `json:"bidder"        binding:"required" example:"0x3c44…93bc"`
	SealedAmount string `json:"sealed_amount" binding:"required"`
	AmountProof  string `json:"amount_proof"  binding:"required"`
	Escrow       string `json:"escrow"        binding:"required" example:"2000000000000000000"`
}

// CallerBody carries the identity for owner-gated and caller-scoped calls.
type CallerBody struct {
	Caller string `json:"caller" binding:"required" example:"0xf39f…2266"`
}

type SetFeeBody struct {
	Caller string `json:"caller"  binding:"required"`
	FeeBps uint32 `json:"fee_bps"`
}

type CreatedResponse struct {
	ID uint64 `json:"id"`
}

type CountResponse struct {
	Count uint64 `json:"count"`
}

type BoolResponse struct {
	Result bool `json:"result"`
}

type BalanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

type WithdrawResponse struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ListAuctionsQuery struct {
	Status string `form:"status"  binding:"omitempty,oneof=ACTIVE SETTLED STOPPED"`
	Limit  int    `form:"limit,default=10"  binding:"gte=0,lte=100"`
	Offset int    `form:"offset,default=0"  binding:"gte=0"`
}
