package parser

import (
	"strconv"

	"github.com/dln-labs/dln-ingest/internal/model"
)

// extractCreated maps an OrderCreated instruction's args/accounts onto
// the typed payload (spec §4.3 "Data extraction"). Missing optional
// fields remain unset.
func extractCreated(ins *Instruction) *model.OrderCreatedData {
	if ins == nil {
		return &model.OrderCreatedData{}
	}
	data := &model.OrderCreatedData{
		Maker:                    ins.Accounts["maker"],
		GiveToken:                ins.Accounts["giveToken"],
		TakeToken:                ins.Accounts["takeToken"],
		Receiver:                 ins.Accounts["receiver"],
		AllowedTaker:             ins.Accounts["allowedTaker"],
		AllowedCancelBeneficiary: ins.Accounts["allowedCancelBeneficiary"],
		GiveAmount:               ins.Args["giveAmount"],
		TakeAmount:               ins.Args["takeAmount"],
		AffiliateFee:             ins.Args["affiliateFee"],
	}
	if v, ok := parseUint(ins.Args["giveChainId"]); ok {
		data.GiveChainID = v
	}
	if v, ok := parseUint(ins.Args["takeChainId"]); ok {
		data.TakeChainID = v
	}
	if v, ok := parseUint(ins.Args["expirySlot"]); ok {
		data.ExpirySlot = &v
	}
	return data
}

// extractFulfilled maps an OrderFulfilled instruction's args/accounts
// onto the typed payload.
func extractFulfilled(ins *Instruction) *model.OrderFulfilledData {
	if ins == nil {
		return &model.OrderFulfilledData{}
	}
	return &model.OrderFulfilledData{
		Fulfiller:         ins.Accounts["fulfiller"],
		OrderBeneficiary:  ins.Accounts["orderBeneficiary"],
		UnlockBeneficiary: ins.Accounts["unlockBeneficiary"],
		GiveAmount:        ins.Args["giveAmount"],
		TakeAmount:        ins.Args["takeAmount"],
	}
}

func parseUint(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
