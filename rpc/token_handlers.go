package rpc

import (
	"encoding/json"
	"errors"
	"math/big"
	"strings"

	"reflectledger/crypto"
	"reflectledger/native/token"
)

type rpcMethod struct {
	mutating bool
	handler  func(*Server, *RPCRequest) (interface{}, *RPCError)
}

var methods = map[string]rpcMethod{
	"token_name":                 {handler: (*Server).handleName},
	"token_symbol":               {handler: (*Server).handleSymbol},
	"token_decimals":             {handler: (*Server).handleDecimals},
	"token_totalSupply":          {handler: (*Server).handleTotalSupply},
	"token_balanceOf":            {handler: (*Server).handleBalanceOf},
	"token_allowance":            {handler: (*Server).handleAllowance},
	"token_owner":                {handler: (*Server).handleOwner},
	"token_txFee":                {handler: (*Server).handleTxFee},
	"token_isExcludedFromFee":    {handler: (*Server).handleIsExcludedFromFee},
	"token_isExcludedFromReward": {handler: (*Server).handleIsExcludedFromReward},
	"token_isBlacklisted":        {handler: (*Server).handleIsBlacklisted},
	"token_liquidityPair":        {handler: (*Server).handleLiquidityPair},
	"token_listEvents":           {handler: (*Server).handleListEvents},

	"token_transfer":            {mutating: true, handler: (*Server).handleTransfer},
	"token_approve":             {mutating: true, handler: (*Server).handleApprove},
	"token_transferFrom":        {mutating: true, handler: (*Server).handleTransferFrom},
	"token_increaseAllowance":   {mutating: true, handler: (*Server).handleIncreaseAllowance},
	"token_decreaseAllowance":   {mutating: true, handler: (*Server).handleDecreaseAllowance},
	"token_enableTrading":       {mutating: true, handler: (*Server).handleEnableTrading},
	"token_setFeeRate":          {mutating: true, handler: (*Server).handleSetFeeRate},
	"token_excludeFromFee":      {mutating: true, handler: (*Server).handleExcludeFromFee},
	"token_includeInFee":        {mutating: true, handler: (*Server).handleIncludeInFee},
	"token_excludeFromReward":   {mutating: true, handler: (*Server).handleExcludeFromReward},
	"token_includeInReward":     {mutating: true, handler: (*Server).handleIncludeInReward},
	"token_addToBlacklist":      {mutating: true, handler: (*Server).handleAddToBlacklist},
	"token_removeFromBlacklist": {mutating: true, handler: (*Server).handleRemoveFromBlacklist},
	"token_sweep":               {mutating: true, handler: (*Server).handleSweep},
}

func decodeParams(req *RPCRequest, out interface{}) *RPCError {
	if len(req.Params) != 1 {
		return &RPCError{Code: codeInvalidParams, Message: "expected a single params object"}
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return &RPCError{Code: codeInvalidParams, Message: "malformed params object"}
	}
	return nil
}

func parseAddressParam(field, value string) ([20]byte, *RPCError) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return [20]byte{}, &RPCError{Code: codeInvalidParams, Message: field + " required"}
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return [20]byte{}, &RPCError{Code: codeInvalidParams, Message: field + ": " + err.Error()}
	}
	return addr.Raw(), nil
}

func parseAmountParam(field, value string) (*big.Int, *RPCError) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, &RPCError{Code: codeInvalidParams, Message: field + " required"}
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, &RPCError{Code: codeInvalidParams, Message: field + " must be a non-negative base-10 integer"}
	}
	return amount, nil
}

func ledgerError(err error) *RPCError {
	if errors.Is(err, token.ErrUnauthorized) {
		return &RPCError{Code: codeUnauthorized, Message: err.Error()}
	}
	return &RPCError{Code: codeLedgerError, Message: err.Error()}
}

func formatAddress(addr [20]byte) string {
	return crypto.MustNewAddress(crypto.RFLPrefix, addr[:]).String()
}

type addressParam struct {
	Address string `json:"address"`
}

type allowanceParams struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
}

type transferParams struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type approveParams struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

type transferFromParams struct {
	Spender string `json:"spender"`
	From    string `json:"from"`
	To      string `json:"to"`
	Amount  string `json:"amount"`
}

type enableTradingParams struct {
	Caller string `json:"caller"`
	Pair   string `json:"pair"`
}

type setFeeRateParams struct {
	Caller string `json:"caller"`
	Bps    uint32 `json:"bps"`
}

type adminTargetParams struct {
	Caller  string `json:"caller"`
	Address string `json:"address"`
}

type sweepParams struct {
	Caller    string `json:"caller"`
	Token     string `json:"token"`
	Recipient string `json:"recipient"`
}

func (s *Server) handleName(*RPCRequest) (interface{}, *RPCError) {
	return s.ledger.Name(), nil
}

func (s *Server) handleSymbol(*RPCRequest) (interface{}, *RPCError) {
	return s.ledger.Symbol(), nil
}

func (s *Server) handleDecimals(*RPCRequest) (interface{}, *RPCError) {
	return token.Decimals, nil
}

func (s *Server) handleTotalSupply(*RPCRequest) (interface{}, *RPCError) {
	return s.ledger.TotalSupply().String(), nil
}

func (s *Server) handleOwner(*RPCRequest) (interface{}, *RPCError) {
	return formatAddress(s.ledger.Owner()), nil
}

func (s *Server) handleTxFee(*RPCRequest) (interface{}, *RPCError) {
	return s.ledger.TxFee(), nil
}

func (s *Server) handleLiquidityPair(*RPCRequest) (interface{}, *RPCError) {
	return formatAddress(s.ledger.LiquidityPair()), nil
}

func (s *Server) handleBalanceOf(req *RPCRequest) (interface{}, *RPCError) {
	var params addressParam
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAddressParam("address", params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	balance, err := s.ledger.BalanceOf(addr)
	if err != nil {
		return nil, ledgerError(err)
	}
	return balance.String(), nil
}

func (s *Server) handleAllowance(req *RPCRequest) (interface{}, *RPCError) {
	var params allowanceParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	owner, rpcErr := parseAddressParam("owner", params.Owner)
	if rpcErr != nil {
		return nil, rpcErr
	}
	spender, rpcErr := parseAddressParam("spender", params.Spender)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.ledger.Allowance(owner, spender).String(), nil
}

func (s *Server) handleIsExcludedFromFee(req *RPCRequest) (interface{}, *RPCError) {
	return s.handleAccountFlag(req, s.ledger.IsExcludedFromFee)
}

func (s *Server) handleIsExcludedFromReward(req *RPCRequest) (interface{}, *RPCError) {
	return s.handleAccountFlag(req, s.ledger.IsExcludedFromReward)
}

func (s *Server) handleIsBlacklisted(req *RPCRequest) (interface{}, *RPCError) {
	return s.handleAccountFlag(req, s.ledger.IsBlacklisted)
}

func (s *Server) handleAccountFlag(req *RPCRequest, flag func([20]byte) bool) (interface{}, *RPCError) {
	var params addressParam
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAddressParam("address", params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return flag(addr), nil
}

func (s *Server) handleListEvents(*RPCRequest) (interface{}, *RPCError) {
	if s.recorder == nil {
		return nil, &RPCError{Code: codeServerError, Message: "event recorder not configured"}
	}
	return s.recorder.Events(), nil
}

func (s *Server) handleTransfer(req *RPCRequest) (interface{}, *RPCError) {
	var params transferParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	from, rpcErr := parseAddressParam("from", params.From)
	if rpcErr != nil {
		return nil, rpcErr
	}
	to, rpcErr := parseAddressParam("to", params.To)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmountParam("amount", params.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.ledger.Transfer(from, to, amount); err != nil {
		return nil, ledgerError(err)
	}
	return true, nil
}

func (s *Server) handleApprove(req *RPCRequest) (interface{}, *RPCError) {
	var params approveParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	owner, rpcErr := parseAddressParam("owner", params.Owner)
	if rpcErr != nil {
		return nil, rpcErr
	}
	spender, rpcErr := parseAddressParam("spender", params.Spender)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmountParam("amount", params.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.ledger.Approve(owner, spender, amount); err != nil {
		return nil, ledgerError(err)
	}
	return true, nil
}

func (s *Server) handleTransferFrom(req *RPCRequest) (interface{}, *RPCError) {
	var params transferFromParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	spender, rpcErr := parseAddressParam("spender", params.Spender)
	if rpcErr != nil {
		return nil, rpcErr
	}
	from, rpcErr := parseAddressParam("from", params.From)
	if rpcErr != nil {
		return nil, rpcErr
	}
	to, rpcErr := parseAddressParam("to", params.To)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmountParam("amount", params.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.ledger.TransferFrom(spender, from, to, amount); err != nil {
		return nil, ledgerError(err)
	}
	return true, nil
}

func (s *Server) handleIncreaseAllowance(req *RPCRequest) (interface{}, *RPCError) {
	return s.handleAllowanceAdjust(req, s.ledger.IncreaseAllowance)
}

func (s *Server) handleDecreaseAllowance(req *RPCRequest) (interface{}, *RPCError) {
	return s.handleAllowanceAdjust(req, s.ledger.DecreaseAllowance)
}

func (s *Server) handleAllowanceAdjust(req *RPCRequest, adjust func([20]byte, [20]byte, *big.Int) error) (interface{}, *RPCError) {
	var params approveParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	owner, rpcErr := parseAddressParam("owner", params.Owner)
	if rpcErr != nil {
		return nil, rpcErr
	}
	spender, rpcErr := parseAddressParam("spender", params.Spender)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmountParam("amount", params.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := adjust(owner, spender, amount); err != nil {
		return nil, ledgerError(err)
	}
	return true, nil
}

func (s *Server) handleEnableTrading(req *RPCRequest) (interface{}, *RPCError) {
	var params enableTradingParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddressParam("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	pair, rpcErr := parseAddressParam("pair", params.Pair)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.ledger.EnableTrading(caller, pair); err != nil {
		return nil, ledgerError(err)
	}
	return true, nil
}

func (s *Server) handleSetFeeRate(req *RPCRequest) (interface{}, *RPCError) {
	var params setFeeRateParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddressParam("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.ledger.SetFeeRate(caller, params.Bps); err != nil {
		return nil, ledgerError(err)
	}
	return true, nil
}

func (s *Server) handleExcludeFromFee(req *RPCRequest) (interface{}, *RPCError) {
	return s.handleAdminTarget(req, s.ledger.ExcludeFromFee)
}

func (s *Server) handleIncludeInFee(req *RPCRequest) (interface{}, *RPCError) {
	return s.handleAdminTarget(req, s.ledger.IncludeInFee)
}

func (s *Server) handleExcludeFromReward(req *RPCRequest) (interface{}, *RPCError) {
	return s.handleAdminTarget(req, s.ledger.ExcludeFromReward)
}

func (s *Server) handleIncludeInReward(req *RPCRequest) (interface{}, *RPCError) {
	return s.handleAdminTarget(req, s.ledger.IncludeInReward)
}

func (s *Server) handleAddToBlacklist(req *RPCRequest) (interface{}, *RPCError) {
	return s.handleAdminTarget(req, s.ledger.AddToBlacklist)
}

func (s *Server) handleRemoveFromBlacklist(req *RPCRequest) (interface{}, *RPCError) {
	return s.handleAdminTarget(req, s.ledger.RemoveFromBlacklist)
}

func (s *Server) handleAdminTarget(req *RPCRequest, op func([20]byte, [20]byte) error) (interface{}, *RPCError) {
	var params adminTargetParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddressParam("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAddressParam("address", params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := op(caller, addr); err != nil {
		return nil, ledgerError(err)
	}
	return true, nil
}

func (s *Server) handleSweep(req *RPCRequest) (interface{}, *RPCError) {
	var params sweepParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddressParam("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	tokenAddr, rpcErr := parseAddressParam("token", params.Token)
	if rpcErr != nil {
		return nil, rpcErr
	}
	recipient, rpcErr := parseAddressParam("recipient", params.Recipient)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.ledger.Sweep(caller, tokenAddr, recipient); err != nil {
		return nil, ledgerError(err)
	}
	return true, nil
}
