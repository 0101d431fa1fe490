package txbuilder

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/meshledger/libmesh-go/ledger"
)

// Select picks a minimal-but-sufficient subset of the available inputs to
// cover the desired outputs and the burn/transition intent, synthesizes
// successor and remainder outputs, and returns the prepared transaction.
//
// Inputs in the result are ordered by required-address type so a secret
// manager can produce unlocks in the order the transaction expects.
func Select(available []*ledger.InputSigningData, outputs []ledger.Output, opts Options, params *ledger.ProtocolParameters) (*PreparedTransactionData, error) {
	logrus.WithField("available", len(available)).Debug("txbuilder: select")

	if len(outputs) == 0 && opts.Burn.Empty() && opts.Transitions.Empty() {
		return nil, ErrNothingToBuild
	}
	if len(available) == 0 {
		return nil, ErrNoAvailableInputs
	}

	for i, out := range outputs {
		if min := params.MinDeposit(out); out.BaseAmount() < min {
			return nil, fmt.Errorf("%w: output %d holds %d, needs %d",
				ErrBelowStorageDeposit, i, out.BaseAmount(), min)
		}
	}

	sel := newSelection(available, opts.CreationSlot)
	finalOutputs := make([]ledger.Output, len(outputs))
	copy(finalOutputs, outputs)

	// Transition targets: consume the current chain output, emit a successor.
	if !opts.Transitions.Empty() {
		for _, accountID := range sortedAccountIDs(opts.Transitions.Accounts) {
			in := sel.findAccount(accountID)
			if in == nil {
				return nil, fmt.Errorf("%w: account %s not among available inputs",
					ErrInvalidTransition, accountID)
			}
			sel.pick(in)
			successor, err := transitionAccount(in.Output.(*ledger.AccountOutput), opts.Transitions.Accounts[accountID])
			if err != nil {
				return nil, err
			}
			finalOutputs = append(finalOutputs, successor)
		}
	}

	// Burn targets: consume without a successor. Their base amount flows
	// into the remainder.
	if !opts.Burn.Empty() {
		if err := sel.pickBurnTargets(opts.Burn); err != nil {
			return nil, err
		}
	}

	// Per-value-type requirements across all produced outputs.
	requiredBase := uint64(0)
	requiredTokens := make(map[ledger.NativeTokenID]uint64)
	for _, out := range finalOutputs {
		requiredBase += out.BaseAmount()
		for _, tok := range out.Tokens() {
			requiredTokens[tok.ID] += tok.Amount
		}
	}
	burnedTokens := map[ledger.NativeTokenID]uint64{}
	if !opts.Burn.Empty() {
		// Burned base coin is covered like any requirement but reaches no
		// output, so it never flows into the remainder.
		requiredBase += opts.Burn.BaseCoin
		burnedTokens = opts.Burn.NativeTokens
	}

	// Cover native tokens first: an input carrying a needed token usually
	// carries base coin too.
	for _, tokenID := range sortedTokenIDs(requiredTokens, burnedTokens) {
		need := requiredTokens[tokenID] + burnedTokens[tokenID]
		for sel.tokenTotal(tokenID) < need {
			in := sel.nextBasicWithToken(tokenID)
			if in == nil {
				id := tokenID
				return nil, &InsufficientFundsError{
					Available: sel.tokenTotal(tokenID) + sel.unselectedTokenTotal(tokenID),
					Required:  need,
					TokenID:   &id,
				}
			}
			sel.pick(in)
		}
	}

	// Cover base coin.
	for sel.baseTotal() < requiredBase {
		in := sel.nextBasic()
		if in == nil {
			return nil, &InsufficientFundsError{
				Available: sel.baseTotal(),
				Required:  requiredBase,
			}
		}
		sel.pick(in)
	}

	// Remainder: per-value-type surplus returned to the remainder address.
	surplusBase := sel.baseTotal() - requiredBase
	surplusTokens := sel.surplusTokens(requiredTokens, burnedTokens)

	var remainders []RemainderData
	if surplusBase > 0 || len(surplusTokens) > 0 {
		if opts.RemainderAddress == nil {
			return nil, ErrNoRemainderAddress
		}
		remainder := &ledger.BasicOutput{
			Amount:       surplusBase,
			NativeTokens: surplusTokens,
			Address:      opts.RemainderAddress,
		}
		// A remainder below its own storage deposit is topped up with
		// further inputs rather than silently dropped. A top-up input may
		// carry tokens of its own, which must surface on the remainder and
		// grow its deposit, so both are recomputed each round.
		for remainder.Amount < params.MinDeposit(remainder) {
			in := sel.nextBasic()
			if in == nil {
				return nil, &InsufficientFundsError{
					Available: remainder.Amount,
					Required:  params.MinDeposit(remainder),
				}
			}
			sel.pick(in)
			remainder.Amount = sel.baseTotal() - requiredBase
			remainder.NativeTokens = sel.surplusTokens(requiredTokens, burnedTokens)
		}
		finalOutputs = append(finalOutputs, remainder)
		remainders = append(remainders, RemainderData{Output: remainder, Address: opts.RemainderAddress})
	}

	// Commitment context: reuse the caller's, never fetch here. Selection is
	// pure; the orchestrator resolves a commitment before calling when one
	// is required.
	var contextInputs []ledger.ContextInput
	needsCommitment := !opts.Transitions.Empty() || containsDelegation(finalOutputs)
	if opts.Commitment != nil {
		contextInputs = []ledger.ContextInput{{Commitment: *opts.Commitment}}
	} else if needsCommitment {
		return nil, ErrMissingCommitment
	}

	inputsData := sel.ordered()
	inputs := make([]ledger.OutputID, len(inputsData))
	for i, in := range inputsData {
		inputs[i] = in.OutputID()
	}

	tx := &ledger.Transaction{
		NetworkID:     params.NetworkID(),
		CreationSlot:  opts.CreationSlot,
		ContextInputs: contextInputs,
		Inputs:        inputs,
		Outputs:       finalOutputs,
	}

	return &PreparedTransactionData{
		Transaction: tx,
		InputsData:  inputsData,
		Remainders:  remainders,
	}, nil
}

// transitionAccount applies a block-issuer-key change to the current account
// state and returns the successor output.
func transitionAccount(current *ledger.AccountOutput, change AccountChange) (*ledger.AccountOutput, error) {
	successor := current.Clone().(*ledger.AccountOutput)
	for _, key := range change.KeysToRemove {
		if !successor.HasBlockIssuerKey(key) {
			return nil, fmt.Errorf("%w: issuer key %s not present on account %s",
				ErrInvalidTransition, key, current.AccountID)
		}
		kept := successor.BlockIssuerKeys[:0]
		for _, k := range successor.BlockIssuerKeys {
			if !k.Equal(key) {
				kept = append(kept, k)
			}
		}
		successor.BlockIssuerKeys = kept
	}
	for _, key := range change.KeysToAdd {
		if successor.HasBlockIssuerKey(key) {
			return nil, fmt.Errorf("%w: issuer key %s already present on account %s",
				ErrInvalidTransition, key, current.AccountID)
		}
		successor.BlockIssuerKeys = append(successor.BlockIssuerKeys, key)
	}
	return successor, nil
}

// selection tracks picked inputs and running per-value-type totals.
type selection struct {
	available []*ledger.InputSigningData
	slot      ledger.SlotIndex
	picked    []*ledger.InputSigningData
	pickedIDs map[ledger.OutputID]bool
	base      uint64
	tokens    map[ledger.NativeTokenID]uint64
}

func newSelection(available []*ledger.InputSigningData, slot ledger.SlotIndex) *selection {
	return &selection{
		available: available,
		slot:      slot,
		pickedIDs: make(map[ledger.OutputID]bool),
		tokens:    make(map[ledger.NativeTokenID]uint64),
	}
}

func (s *selection) pick(in *ledger.InputSigningData) {
	id := in.OutputID()
	if s.pickedIDs[id] {
		return
	}
	s.pickedIDs[id] = true
	s.picked = append(s.picked, in)
	s.base += in.Output.BaseAmount()
	for _, tok := range in.Output.Tokens() {
		s.tokens[tok.ID] += tok.Amount
	}
}

func (s *selection) baseTotal() uint64 { return s.base }

func (s *selection) tokenTotal(id ledger.NativeTokenID) uint64 { return s.tokens[id] }

// spendableBasic reports whether in is a basic output free for selection:
// unselected, not a chain output, and past any timelock.
func (s *selection) spendableBasic(in *ledger.InputSigningData) bool {
	if s.pickedIDs[in.OutputID()] {
		return false
	}
	basic, ok := in.Output.(*ledger.BasicOutput)
	if !ok {
		return false
	}
	return basic.Timelock == 0 || basic.Timelock <= s.slot
}

func (s *selection) nextBasic() *ledger.InputSigningData {
	for _, in := range s.available {
		if s.spendableBasic(in) {
			return in
		}
	}
	return nil
}

func (s *selection) nextBasicWithToken(id ledger.NativeTokenID) *ledger.InputSigningData {
	for _, in := range s.available {
		if !s.spendableBasic(in) {
			continue
		}
		for _, tok := range in.Output.Tokens() {
			if tok.ID == id && tok.Amount > 0 {
				return in
			}
		}
	}
	return nil
}

func (s *selection) unselectedTokenTotal(id ledger.NativeTokenID) uint64 {
	total := uint64(0)
	for _, in := range s.available {
		if !s.spendableBasic(in) {
			continue
		}
		for _, tok := range in.Output.Tokens() {
			if tok.ID == id {
				total += tok.Amount
			}
		}
	}
	return total
}

func (s *selection) findAccount(id ledger.AccountID) *ledger.InputSigningData {
	for _, in := range s.available {
		if acc, ok := in.Output.(*ledger.AccountOutput); ok && acc.AccountID == id {
			return in
		}
	}
	return nil
}

func (s *selection) pickBurnTargets(burn *Burn) error {
	for _, id := range burn.Accounts {
		in := s.findAccount(id)
		if in == nil {
			return &BurnNotFoundError{Kind: "account", ID: id.String()}
		}
		s.pick(in)
	}
	for _, id := range burn.NFTs {
		var found *ledger.InputSigningData
		for _, in := range s.available {
			if nft, ok := in.Output.(*ledger.NFTOutput); ok && nft.NFTID == id {
				found = in
				break
			}
		}
		if found == nil {
			return &BurnNotFoundError{Kind: "nft", ID: id.String()}
		}
		s.pick(found)
	}
	for _, id := range burn.Foundries {
		var found *ledger.InputSigningData
		for _, in := range s.available {
			if f, ok := in.Output.(*ledger.FoundryOutput); ok && f.ID() == id {
				found = in
				break
			}
		}
		if found == nil {
			return &BurnNotFoundError{Kind: "foundry", ID: id.String()}
		}
		s.pick(found)
	}
	for _, id := range burn.Delegations {
		var found *ledger.InputSigningData
		for _, in := range s.available {
			if d, ok := in.Output.(*ledger.DelegationOutput); ok && d.DelegationID == id {
				found = in
				break
			}
		}
		if found == nil {
			return &BurnNotFoundError{Kind: "delegation", ID: id.String()}
		}
		s.pick(found)
	}
	return nil
}

// surplusTokens computes per-token surplus over requirement plus burn,
// sorted by token id for a deterministic remainder.
func (s *selection) surplusTokens(required, burned map[ledger.NativeTokenID]uint64) []ledger.NativeToken {
	var out []ledger.NativeToken
	for id, have := range s.tokens {
		need := required[id] + burned[id]
		if have > need {
			out = append(out, ledger.NativeToken{ID: id, Amount: have - need})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out
}

// ordered returns the picked inputs sorted by required-address type, stable
// within a type. Inputs without a standalone required address (foundries)
// sort with the account-controlled group they unlock through.
func (s *selection) ordered() []*ledger.InputSigningData {
	out := make([]*ledger.InputSigningData, len(s.picked))
	copy(out, s.picked)
	key := func(in *ledger.InputSigningData) ledger.AddressType {
		addr := in.Output.RequiredAddress(s.slot, 0, 0)
		if addr == nil {
			return ledger.AddressAccount
		}
		return addr.Type()
	}
	sort.SliceStable(out, func(i, j int) bool {
		return key(out[i]) < key(out[j])
	})
	return out
}

func containsDelegation(outputs []ledger.Output) bool {
	for _, out := range outputs {
		if _, ok := out.(*ledger.DelegationOutput); ok {
			return true
		}
	}
	return false
}

func sortedAccountIDs(m map[ledger.AccountID]AccountChange) []ledger.AccountID {
	ids := make([]ledger.AccountID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}

func sortedTokenIDs(required, burned map[ledger.NativeTokenID]uint64) []ledger.NativeTokenID {
	seen := make(map[ledger.NativeTokenID]bool)
	var ids []ledger.NativeTokenID
	for id := range required {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for id := range burned {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}
